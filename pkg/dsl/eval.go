// Package dsl 提供训练阶段的行过滤表达式，基于 CEL (Common Expression Language)。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，变量均为 int。
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("user_ratings", cel.IntType),
		cel.Variable("book_ratings", cel.IntType),
		cel.Variable("rating", cel.IntType),
		cel.Variable("year", cel.IntType),
	)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Vars 是一条评分记录可用于过滤的变量。
type Vars struct {
	UserRatings int // 该用户的评分总数
	BookRatings int // 该书的评分总数
	Rating      int // 本条评分
	Year        int // 出版年份，无法解析时为 0
}

// Filter 是编译后的过滤表达式，可并发调用 Match。
//
// 表达式语法（CEL 标准语法）：
//   - user_ratings > 200 && book_ratings >= 50
//   - rating > 0
//   - year >= 1990 || year == 0
type Filter struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；空表达式匹配所有记录。表达式必须返回 bool。
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return &Filter{}, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// MustCompile 与 Compile 相同，出错时 panic，用于常量表达式。
func MustCompile(expr string) *Filter {
	f, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// Expr 返回原始表达式。
func (f *Filter) Expr() string { return f.expr }

// Match 对一条记录求值。
func (f *Filter) Match(v Vars) (bool, error) {
	if f.prg == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{
		"user_ratings": int64(v.UserRatings),
		"book_ratings": int64(v.BookRatings),
		"rating":       int64(v.Rating),
		"year":         int64(v.Year),
	})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Threshold 生成按评分数阈值过滤的表达式：用户评分数 > minUser 且书评分数 >= minBook。
func Threshold(minUser, minBook int) string {
	return fmt.Sprintf("user_ratings > %d && book_ratings >= %d", minUser, minBook)
}

package core

import (
	"context"
	"errors"
)

// Store 是产物存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 只按 key 存取不透明的字节块，编解码由 artifact 包负责
//   - 遵循依赖倒置原则：领域层不依赖基础设施层
//
// 实现：
//   - store.FileStore：目录 + 原子写（默认）
//   - store.MemoryStore：测试/开发
//   - store.RedisStore：多实例共享产物
//   - store.BadgerStore：嵌入式持久化
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值，不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// Close 关闭连接/释放资源
	Close() error
}

// ErrStoreNotFound 表示 key 不存在
var ErrStoreNotFound = errors.New("store: key not found")

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	return errors.Is(err, ErrStoreNotFound)
}

// Package store 提供 core.Store 的实现：按 key 读写不透明字节块。
//
//	FileStore    目录下每个 key 一个文件，写入经临时文件 + rename，单个产物原子替换
//	MemoryStore  进程内，测试与演示
//	RedisStore   多个服务实例共享产物
//	BadgerStore  嵌入式 KV，dir 为空时纯内存
//
// key 不存在时 Get 返回的错误满足 errors.Is(err, core.ErrStoreNotFound)。
package store

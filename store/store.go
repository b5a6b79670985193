// Package store 提供 core 层存储契约的基础设施实现：
// MemoryStore / RedisStore 实现 core.Store 与 core.KeyValueStore，
// BookStoreAdapter 在任意 core.Store 上铺一层图书数据集的 key 布局，
// StoreSeqClock 基于计数器实现逻辑时钟。
//
// 接口定义在 core 包，此包只有实现。
//
// 示例：
//
//	kv := store.NewMemoryStore()
//	books := store.NewBookStoreAdapter(kv, "")
//	clock := store.NewStoreSeqClock(kv, "")
package store

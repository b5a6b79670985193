package model

// RankModel 是排序阶段的最小抽象：输入特征，输出一个可比较的分数。
// 具体实现可以是本地模型（线性加权）或远程打分服务。
type RankModel interface {
	Name() string
	Predict(features map[string]float64) (float64, error)
}

// BatchModel 是模型可选实现的批量打分接口。
// 远程服务一次打一批候选，省掉逐条调用的往返开销。
type BatchModel interface {
	PredictBatch(featuresList []map[string]float64) ([]float64, error)
}

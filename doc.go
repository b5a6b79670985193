// Package bookrec 是一个图书推荐引擎（Book Recommender）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Labels-first: labels 全链路透传与标准化 merge，每条推荐可解释、可观测
// - 多信号融合: 协同过滤、隐因子、内容相似、热门质量统计加权合成一个排序分
// - Node 可扩展: 自定义 Node 即可插拔扩展（本地或远程模型均可）
//
// 入口通常是 hybrid.Engine（组装好的多信号引擎），需要细粒度控制时
// 直接拼 pipeline.Pipeline。
package bookrec

import "github.com/rushteam/bookrec/pipeline"

// 轻量 facade：便于用户直接 import "bookrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

package models

import (
	"time"
)

// Agent 工作状态。状态汇报是旁路簿记，不参与任务正确性。
const (
	AgentStatusIdle = "idle"
	AgentStatusBusy = "busy"
)

// AgentCapabilities 描述一个 agent 能接受和产出的数据类型。
type AgentCapabilities struct {
	InputTypes  []string `bson:"input_types" json:"input_types"`
	OutputTypes []string `bson:"output_types" json:"output_types"`
}

// AgentRecord 是持久化在 agents 集合中的 worker 注册记录。
// 注册在构造时发生一次（upsert），之后只更新状态和心跳；
// skills 字段支持按技能发现候选 agent，流水线本身是静态接线的。
type AgentRecord struct {
	AgentID       string            `bson:"agent_id" json:"agent_id"`
	AgentType     string            `bson:"agent_type" json:"agent_type"`
	Skills        []string          `bson:"skills" json:"skills"`
	Capabilities  AgentCapabilities `bson:"capabilities" json:"capabilities"`
	Status        string            `bson:"status" json:"status"` // "idle" | "busy"
	CurrentTaskID string            `bson:"current_task_id" json:"current_task_id"`
	RegisteredAt  time.Time         `bson:"registered_at" json:"registered_at"`
	LastHeartbeat time.Time         `bson:"last_heartbeat" json:"last_heartbeat"`
}

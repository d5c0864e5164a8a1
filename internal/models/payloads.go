package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// 任务载荷按 task_type 定型。Task.InputData/OutputData 在存储层保持为
// bson.M 以便任务集合对载荷结构保持中立，各 worker 通过下面的类型
// 和 EncodePayload/DecodePayload 在边界处完成定型转换，避免各阶段
// 之间载荷结构漂移。

// DataCollectionInput 是 data_collection 任务的输入。
// 上传的音频/照片二进制不经过任务队列，由编排器直接传给 worker。
type DataCollectionInput struct {
	MeetingText string `bson:"meeting_text" json:"meeting_text"`
	Location    string `bson:"location" json:"location"`
	UserID      string `bson:"user_id" json:"user_id"`
}

// DataCollectionOutput 是 data_collection 任务的输出。
// UnifiedText 是下游所有阶段的标准输入。
type DataCollectionOutput struct {
	PersonID    string `bson:"person_id" json:"person_id"`
	MeetingID   string `bson:"meeting_id" json:"meeting_id"`
	UnifiedText string `bson:"unified_text" json:"unified_text"`
	UserID      string `bson:"user_id" json:"user_id"`
}

// ExtractionInput 是 extraction 任务的输入。
type ExtractionInput struct {
	UnifiedText string `bson:"unified_text" json:"unified_text"`
	PersonID    string `bson:"person_id" json:"person_id"`
}

// ExtractionOutput 是 extraction 任务的输出，同时也是写回 Person 的字段。
type ExtractionOutput struct {
	Name        string            `bson:"name" json:"name"`
	Company     string            `bson:"company" json:"company"`
	JobTitle    string            `bson:"job_title" json:"job_title"`
	ContactInfo map[string]string `bson:"contact_info" json:"contact_info"`
}

// SummarizationInput 是 summarization 任务的输入。
type SummarizationInput struct {
	UnifiedText string `bson:"unified_text" json:"unified_text"`
	MeetingID   string `bson:"meeting_id" json:"meeting_id"`
	UserID      string `bson:"user_id" json:"user_id"`
}

// SummarizationOutput 是 summarization 任务的输出。
type SummarizationOutput struct {
	Summary string `bson:"summary" json:"summary"`
}

// CategorizationInput 是 categorization 任务的输入。
type CategorizationInput struct {
	PersonID  string `bson:"person_id" json:"person_id"`
	MeetingID string `bson:"meeting_id" json:"meeting_id"`
	UserID    string `bson:"user_id" json:"user_id"`
}

// CategorizationOutput 是 categorization 任务的输出。
type CategorizationOutput struct {
	PriorityGroup    string   `bson:"priority_group" json:"priority_group"`
	Score            float64  `bson:"score" json:"score"`
	Reasons          []string `bson:"reasons" json:"reasons"`
	Persona          string   `bson:"persona" json:"persona"`
	UrgencyLevel     string   `bson:"urgency_level" json:"urgency_level"`
	IntentMatchScore float64  `bson:"intent_match_score" json:"intent_match_score"`
}

// FailureOutput 是任务失败时写入 output_data 的载荷。
type FailureOutput struct {
	Error string `bson:"error" json:"error"`
}

// EncodePayload 将定型载荷转换为存储层使用的 bson.M。
func EncodePayload(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return m, nil
}

// DecodePayload 将 bson.M 载荷还原为定型结构。out 必须是指针。
func DecodePayload(m bson.M, out interface{}) error {
	raw, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

package models

import (
	"time"
)

// 联系人优先级分组。
const (
	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"
)

// UnknownField 是抽取失败时的占位值。
const UnknownField = "Unknown"

// ExtractedData 是抽取阶段写入 Person 的结构化字段。
type ExtractedData struct {
	ContactInfo map[string]string `bson:"contact_info" json:"contact_info"`
	ExtractedAt time.Time         `bson:"extracted_at" json:"extracted_at"`
}

// Categorization 是分类阶段写入 Person 的打分结果。
type Categorization struct {
	Score            float64   `bson:"score" json:"score"`                             // [0,1] 区间的重要性评分
	PriorityGroup    string    `bson:"priority_group" json:"priority_group"`           // P0 | P1 | P2
	Reasons          []string  `bson:"reasons" json:"reasons"`                         // 评分理由
	Persona          string    `bson:"persona" json:"persona"`                         // LLM 归纳的画像，回退路径下为空
	UrgencyLevel     string    `bson:"urgency_level" json:"urgency_level"`             // LLM 给出的跟进紧迫度
	IntentMatchScore float64   `bson:"intent_match_score" json:"intent_match_score"`   // 与用户意图的匹配度
	CategorizedAt    time.Time `bson:"categorized_at" json:"categorized_at"`           // 分类时间
}

// Person 代表一位在会面中结识的联系人。
// 各字段由流水线的不同阶段分别拥有: 数据收集阶段创建文档，
// 抽取阶段写 name/company/job_title/extracted_data，分类阶段写 categorization。
type Person struct {
	PersonID      string         `bson:"person_id" json:"person_id"`
	Name          string         `bson:"name" json:"name"`
	Company       string         `bson:"company" json:"company"`
	JobTitle      string         `bson:"job_title" json:"job_title"`
	ExtractedData ExtractedData  `bson:"extracted_data" json:"extracted_data"`
	Categorized   Categorization `bson:"categorization" json:"categorization"`
	MeetingIDs    []string       `bson:"meeting_ids" json:"meeting_ids"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
}

// MediaFile 记录一个上传文件的元数据与对象存储引用。
// 原始二进制不进任务队列，队列里只携带 StorageRef。
type MediaFile struct {
	Filename      string `bson:"filename" json:"filename"`
	ContentType   string `bson:"content_type" json:"content_type"`
	Size          int64  `bson:"size" json:"size"`
	StorageRef    string `bson:"storage_ref" json:"storage_ref"`       // 对象存储键，未启用对象存储时为空
	Processed     bool   `bson:"processed" json:"processed"`           // 转写/OCR 是否成功
	ExtractedText string `bson:"extracted_text,omitempty" json:"extracted_text,omitempty"` // 照片的 OCR 文本
	ProcessedAt   string `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// RawMeetingData 保存会面的原始输入。Text 是统一文本:
// 手写笔记 + 音频转写 + 照片 OCR 按序拼接，是所有下游阶段的标准输入。
type RawMeetingData struct {
	Text            string      `bson:"text" json:"text"`
	Audio           *MediaFile  `bson:"audio,omitempty" json:"audio,omitempty"`
	Photos          []MediaFile `bson:"photos" json:"photos"`
	TranscribedText string      `bson:"transcribed_text,omitempty" json:"transcribed_text,omitempty"`
}

// Summary 是摘要阶段写入 Meeting 的结果。
type Summary struct {
	Text      string    `bson:"text" json:"text"`
	KeyPoints []string  `bson:"key_points" json:"key_points"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// 会面处理状态。
const (
	MeetingStatusProcessing = "processing"
	MeetingStatusCompleted  = "completed"
)

// Meeting 代表一次会面记录。
type Meeting struct {
	MeetingID     string         `bson:"meeting_id" json:"meeting_id"`
	PersonID      string         `bson:"person_id" json:"person_id"`
	UserID        string         `bson:"user_id" json:"user_id"`
	Date          time.Time      `bson:"date" json:"date"`
	Location      string         `bson:"location" json:"location"`
	RawData       RawMeetingData `bson:"raw_data" json:"raw_data"`
	Summary       Summary        `bson:"summary" json:"summary"`
	PriorityGroup string         `bson:"priority_group" json:"priority_group"`
	Status        string         `bson:"status" json:"status"` // "processing" | "completed"
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
}

// 用户使用场景，决定摘要关注点与分类语境。
const (
	UseCaseNetworking     = "networking"
	UseCaseSales          = "sales"
	UseCaseJobHunting     = "job_hunting"
	UseCaseLeadGeneration = "lead_generation"
)

// EventDetails 记录用户在引导问卷中填写的活动信息。
type EventDetails struct {
	EventName     string `bson:"event_name" json:"event_name"`
	EventDate     string `bson:"event_date" json:"event_date"`
	EventLocation string `bson:"event_location" json:"event_location"`
}

// Priorities 是用户声明的优先关注维度。
type Priorities struct {
	Industries   []string `bson:"industries" json:"industries"`
	CompanySizes []string `bson:"company_sizes" json:"company_sizes"`
	JobTitles    []string `bson:"job_titles" json:"job_titles"`
}

// ExtractedPreferences 是从用户自由评论中分析出的隐式偏好。
type ExtractedPreferences struct {
	AdditionalIndustries []string `bson:"additional_industries" json:"additional_industries"`
	CustomCriteria       []string `bson:"custom_criteria" json:"custom_criteria"`
	ValueIndicators      []string `bson:"value_indicators" json:"value_indicators"`
	SpecialRequirements  []string `bson:"special_requirements" json:"special_requirements"`
	ExclusionCriteria    []string `bson:"exclusion_criteria" json:"exclusion_criteria"`
}

// UserPreferences 保存引导问卷的结果，摘要与分类阶段据此构造语境。
type UserPreferences struct {
	UserID               string               `bson:"user_id" json:"user_id"`
	UseCase              string               `bson:"use_case" json:"use_case"`
	Intent               string               `bson:"intent" json:"intent"`
	Goals                string               `bson:"goals" json:"goals"`
	EventDetails         EventDetails         `bson:"event_details" json:"event_details"`
	Priorities           Priorities           `bson:"priorities" json:"priorities"`
	ExtractedPreferences ExtractedPreferences `bson:"extracted_preferences" json:"extracted_preferences"`
	OnboardingComments   string               `bson:"onboarding_comments" json:"onboarding_comments"`
	CreatedAt            time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time            `bson:"updated_at" json:"updated_at"`
}

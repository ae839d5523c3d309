package model

// 重力条件取值。
const (
	GravityMicro   = "microgravity"
	GravityPartial = "partial_gravity"
	GravityHyper   = "hypergravity"
)

// 研究类型取值。
const (
	StudyExperimental  = "experimental"
	StudyObservational = "observational"
	StudyComputational = "computational"
	StudyReview        = "review"
)

// Entities 是实体抽取的结果，按类别分组，各列表去重且有序。
type Entities struct {
	Organisms        []string `json:"organisms"`
	Tissues          []string `json:"tissues"`
	Genes            []string `json:"genes"`
	Proteins         []string `json:"proteins"`
	Missions         []string `json:"missions"`
	Keywords         []string `json:"keywords"`
	GravityCondition string   `json:"gravity_condition,omitempty"`
	StudyType        string   `json:"study_type,omitempty"`
}

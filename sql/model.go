package sql

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

type postingModel struct {
	bun.BaseModel `bun:"table:postings"`

	Id             uuid.UUID  `bun:"id,pk,type:uuid"`
	Poster         string     `bun:"poster,notnull"`
	TargetFunction string     `bun:"target_function,notnull"`
	EntryPoint     string     `bun:"entry_point,notnull"`
	Status         job.Status `bun:"status,notnull"`
	CreatedOn      time.Time  `bun:"created_on,nullzero,notnull,default:current_timestamp"`
}

func (m *postingModel) toPosting() *job.Posting {
	return &job.Posting{
		Id:             m.Id,
		Poster:         m.Poster,
		TargetFunction: m.TargetFunction,
		EntryPoint:     m.EntryPoint,
		Status:         m.Status,
		CreatedOn:      m.CreatedOn,
	}
}

func postingToModel(p *job.Posting) *postingModel {
	return &postingModel{
		Id:             p.Id,
		Poster:         p.Poster,
		TargetFunction: p.TargetFunction,
		EntryPoint:     p.EntryPoint,
		Status:         p.Status,
		CreatedOn:      p.CreatedOn,
	}
}

type jobRecordModel struct {
	bun.BaseModel `bun:"table:job_records"`

	Id        uuid.UUID `bun:"id,pk,type:uuid"`
	PostingId uuid.UUID `bun:"posting_id,notnull,type:uuid"`

	Priority int32 `bun:"priority,notnull"`

	PositionalArguments []any          `bun:"positional_arguments,type:jsonb"`
	KeywordArguments    map[string]any `bun:"keyword_arguments,type:jsonb"`

	TriesRemaining uint32     `bun:"tries_remaining,notnull"`
	Status         job.Status `bun:"status,notnull"`

	CreatedOn time.Time `bun:"created_on,nullzero,notnull,default:current_timestamp"`
	UpdatedOn time.Time `bun:"updated_on,nullzero,notnull,default:current_timestamp"`
}

func (m *jobRecordModel) toJobRecord() *job.JobRecord {
	return &job.JobRecord{
		Id:                  m.Id,
		PostingId:           m.PostingId,
		Priority:            m.Priority,
		PositionalArguments: m.PositionalArguments,
		KeywordArguments:    m.KeywordArguments,
		TriesRemaining:      m.TriesRemaining,
		Status:              m.Status,
		CreatedOn:           m.CreatedOn,
		UpdatedOn:           m.UpdatedOn,
	}
}

func jobRecordToModel(postingId uuid.UUID, rec *job.JobRecord) *jobRecordModel {
	return &jobRecordModel{
		Id:                  rec.Id,
		PostingId:           postingId,
		Priority:            rec.Priority,
		PositionalArguments: rec.PositionalArguments,
		KeywordArguments:    rec.KeywordArguments,
		TriesRemaining:      rec.TriesRemaining,
		Status:              rec.Status,
		CreatedOn:           rec.CreatedOn,
		UpdatedOn:           rec.UpdatedOn,
	}
}

type jobProfileModel struct {
	bun.BaseModel `bun:"table:job_profiles"`

	Id          uuid.UUID `bun:"id,pk,type:uuid"`
	JobRecordId uuid.UUID `bun:"job_record_id,notnull,type:uuid"`

	TotalCalls int64   `bun:"total_calls,notnull"`
	TotalTime  float64 `bun:"total_time,notnull"`

	CreatedOn time.Time `bun:"created_on,nullzero,notnull,default:current_timestamp"`
}

type functionModel struct {
	bun.BaseModel `bun:"table:functions"`

	Id     uuid.UUID `bun:"id,pk,type:uuid"`
	File   string    `bun:"file,notnull"`
	Name   string    `bun:"name,notnull"`
	Lineno int64     `bun:"lineno,notnull"`
}

type functionStatModel struct {
	bun.BaseModel `bun:"table:function_stats"`

	JobProfileId uuid.UUID `bun:"job_profile_id,pk,type:uuid"`
	FunctionId   uuid.UUID `bun:"function_id,pk,type:uuid"`

	PrimitiveCalls int64   `bun:"primitive_calls,notnull"`
	TotalCalls     int64   `bun:"total_calls,notnull"`
	TotalTime      float64 `bun:"total_time,notnull"`
	CumulativeTime float64 `bun:"cumulative_time,notnull"`
}

type functionCallMapModel struct {
	bun.BaseModel `bun:"table:function_call_maps"`

	JobProfileId     uuid.UUID `bun:"job_profile_id,pk,type:uuid"`
	CallerFunctionId uuid.UUID `bun:"caller_function_id,pk,type:uuid"`
	CalleeFunctionId uuid.UUID `bun:"callee_function_id,pk,type:uuid"`

	Calls int64   `bun:"calls,notnull"`
	Time  float64 `bun:"time,notnull"`
}

package sql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
)

// ProfileStore implements pdoflow.ProfileStore using a SQL backend.
//
// Function rows are shared across profiles: SaveProfile upserts on the
// (file, name, lineno) identity so repeated executions of the same
// code reuse one row instead of growing functions unboundedly.
type ProfileStore struct {
	db *bun.DB
}

// NewProfileStore creates a new SQL-backed ProfileStore.
func NewProfileStore(db *bun.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) SaveProfile(ctx context.Context, jobRecordId uuid.UUID, result *pdoflow.ProfileResult) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return saveProfile(ctx, tx, jobRecordId, result)
	})
}

// saveProfile writes result's rows against db, which may be a *bun.DB
// or an already-open bun.Tx. Dispatcher.Succeed and Fail call this
// directly with their own tx so a unit's profile is written in the
// identical transaction as its outcome update, never a separate one.
func saveProfile(ctx context.Context, db bun.IDB, jobRecordId uuid.UUID, result *pdoflow.ProfileResult) error {
	functionIds := make(map[pdoflow.ProfiledFunctionKey]uuid.UUID, len(result.Functions))
	for _, fn := range result.Functions {
		key := pdoflow.ProfiledFunctionKey{File: fn.File, Name: fn.Name, Lineno: fn.Lineno}
		id, err := upsertFunction(ctx, db, key)
		if err != nil {
			return err
		}
		functionIds[key] = id
	}

	profile := &jobProfileModel{
		Id:          uuid.New(),
		JobRecordId: jobRecordId,
		TotalCalls:  result.TotalCalls,
		TotalTime:   result.TotalTime,
		CreatedOn:   time.Now(),
	}
	if _, err := db.NewInsert().Model(profile).Exec(ctx); err != nil {
		return err
	}

	stats := make([]*functionStatModel, 0, len(result.Functions))
	var edges []*functionCallMapModel
	for _, fn := range result.Functions {
		key := pdoflow.ProfiledFunctionKey{File: fn.File, Name: fn.Name, Lineno: fn.Lineno}
		stats = append(stats, &functionStatModel{
			JobProfileId:   profile.Id,
			FunctionId:     functionIds[key],
			PrimitiveCalls: fn.PrimitiveCalls,
			TotalCalls:     fn.TotalCalls,
			TotalTime:      fn.TotalTime,
			CumulativeTime: fn.CumulativeTime,
		})
		for calleeKey, edge := range fn.Callees {
			calleeId, ok := functionIds[calleeKey]
			if !ok {
				var err error
				calleeId, err = upsertFunction(ctx, db, calleeKey)
				if err != nil {
					return err
				}
				functionIds[calleeKey] = calleeId
			}
			edges = append(edges, &functionCallMapModel{
				JobProfileId:     profile.Id,
				CallerFunctionId: functionIds[key],
				CalleeFunctionId: calleeId,
				Calls:            edge.Calls,
				Time:             edge.Time,
			})
		}
	}

	if len(stats) > 0 {
		if _, err := db.NewInsert().Model(&stats).Exec(ctx); err != nil {
			return err
		}
	}
	if len(edges) > 0 {
		if _, err := db.NewInsert().Model(&edges).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// upsertFunction returns the id of the functions row identified by
// key, inserting one if none exists yet.
func upsertFunction(ctx context.Context, db bun.IDB, key pdoflow.ProfiledFunctionKey) (uuid.UUID, error) {
	fn := &functionModel{
		Id:     uuid.New(),
		File:   key.File,
		Name:   key.Name,
		Lineno: key.Lineno,
	}
	_, err := db.NewInsert().
		Model(fn).
		On("CONFLICT (file, name, lineno) DO UPDATE SET file = EXCLUDED.file").
		Returning("id").
		Exec(ctx, fn)
	if err != nil {
		return uuid.Nil, err
	}
	return fn.Id, nil
}

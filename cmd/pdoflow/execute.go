package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mit-kavli-institute/pdoflow-go/registry"
	pdoflowsql "github.com/mit-kavli-institute/pdoflow-go/sql"
)

func buildExecuteJobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute-job <uuid>",
		Short: "Run one job record's unit in-process, for debugging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecuteJob(cmd.Context(), args[0])
		},
	}
	return cmd
}

// runExecuteJob resolves and invokes one job record's callable
// in-process, outside the normal claim/success/fail protocol, so an
// operator can reproduce a failure locally. It never touches the
// record's status: debugging a unit must not affect dispatch state.
func runExecuteJob(ctx context.Context, rawId string) error {
	id, err := uuid.Parse(rawId)
	if err != nil {
		return invalidArgument(fmt.Errorf("malformed job record id %q: %w", rawId, err))
	}

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, posting, err := pdoflowsql.GetJobRecordWithPosting(ctx, db, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return notFound(fmt.Errorf("job record %s not found", id))
	}

	reg := registry.New()
	fn, err := reg.Resolve(posting.EntryPoint, posting.TargetFunction)
	if err != nil {
		return fmt.Errorf("no callable registered for entry point %q, function %q: %w", posting.EntryPoint, posting.TargetFunction, err)
	}

	return fn(ctx, rec.PositionalArguments, rec.KeywordArguments)
}

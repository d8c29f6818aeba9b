package migration

import (
	"github.com/ged/inlineschema/internal/common"
	"github.com/ged/inlineschema/internal/entity"
)

// TargetZero is the sentinel target meaning "undo everything".
const TargetZero = "zero"

// Plan is a resolved execution set: the migrations to run, already in
// execution order, and the direction to run them in.
type Plan struct {
	Direction  entity.Direction
	Migrations []*entity.Migration
}

// ResolvePlan turns a target into a concrete plan against the already
// sorted applied and pending sequences.
//
//   - empty target, nothing pending: empty forward plan (no-op)
//   - empty target: all of pending, ascending, forward
//   - TargetZero: all of applied, descending, reverse
//   - target in pending: the pending prefix through target, forward
//   - target in applied: the applied entries after target, descending,
//     reverse; target itself stays applied, so repeating a run with the
//     same target is a no-op
//   - anything else: resolution error
func ResolvePlan(applied, pending []*entity.Migration, target string) (*Plan, error) {
	if target == "" {
		return &Plan{Direction: entity.DirectionForward, Migrations: pending}, nil
	}

	if target == TargetZero {
		return &Plan{Direction: entity.DirectionReverse, Migrations: reversed(applied)}, nil
	}

	for i, m := range pending {
		if m.Name == target {
			return &Plan{Direction: entity.DirectionForward, Migrations: pending[:i+1]}, nil
		}
	}
	for i, m := range applied {
		if m.Name == target {
			return &Plan{Direction: entity.DirectionReverse, Migrations: reversed(applied[i+1:])}, nil
		}
	}

	return nil, common.NewResolutionError(
		"migration target %q matches neither a pending nor an applied migration", target)
}

func reversed(ms []*entity.Migration) []*entity.Migration {
	out := make([]*entity.Migration, len(ms))
	for i, m := range ms {
		out[len(ms)-1-i] = m
	}
	return out
}

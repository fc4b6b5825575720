package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/frotalog/registro/internal/common/dto"
)

// Push applies a caller-submitted change set inside one database transaction.
// A row that fails validation or hits a constraint is rolled back to a
// savepoint and its id is collected as a rejection; sibling rows are not
// affected. Only infrastructure failures abort the transaction and surface as
// an error.
func (s *Service) Push(ctx context.Context, changes dto.Changes, empresaID uint) ([]string, error) {
	rejected := make([]string, 0)

	err := s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		seq := 0
		for _, name := range tableOrder {
			tc, ok := changes[name]
			if !ok {
				continue
			}
			h := tableHandlers[name]

			for _, row := range tc.Created {
				if err := s.applyRow(tx, &seq, func() error { return h.upsert(tx, empresaID, row) }); err != nil {
					s.logger.Debug("row rejected",
						zap.String("table", name),
						zap.String("id", row.ID()),
						zap.Error(err))
					rejected = append(rejected, row.ID())
				}
			}
			for _, row := range tc.Updated {
				if err := s.applyRow(tx, &seq, func() error { return h.upsert(tx, empresaID, row) }); err != nil {
					s.logger.Debug("row rejected",
						zap.String("table", name),
						zap.String("id", row.ID()),
						zap.Error(err))
					rejected = append(rejected, row.ID())
				}
			}
			for _, id := range tc.Deleted {
				deleteID := id
				if err := s.applyRow(tx, &seq, func() error { return h.remove(tx, empresaID, deleteID) }); err != nil {
					s.logger.Debug("delete rejected",
						zap.String("table", name),
						zap.String("id", deleteID),
						zap.Error(err))
					rejected = append(rejected, deleteID)
				}
			}
		}

		// A table the registry does not know cannot be applied; reject every
		// id it names rather than failing the request.
		for name, tc := range changes {
			if _, ok := tableHandlers[name]; ok {
				continue
			}
			s.logger.Warn("push references unknown table", zap.String("table", name))
			for _, row := range tc.Created {
				rejected = append(rejected, row.ID())
			}
			for _, row := range tc.Updated {
				rejected = append(rejected, row.ID())
			}
			rejected = append(rejected, tc.Deleted...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// applyRow runs one row operation under a savepoint so that a failed
// statement does not poison the surrounding transaction (required on
// postgres, where an errored statement aborts the transaction otherwise).
func (s *Service) applyRow(tx *gorm.DB, seq *int, fn func() error) error {
	*seq++
	name := fmt.Sprintf("sp_row_%d", *seq)
	if err := tx.SavePoint(name).Error; err != nil {
		return err
	}
	if err := fn(); err != nil {
		tx.RollbackTo(name)
		return err
	}
	return nil
}

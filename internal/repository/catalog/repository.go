package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordwell/ordercore/internal/database"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/repository"
)

var repoTracer = otel.Tracer("github.com/nordwell/ordercore/repository/catalog")

// Repository stores catalog products synced from the ERP.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// GetByArticle fetches the current product row for an article.
func (r *Repository) GetByArticle(ctx context.Context, article string) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.GetByArticle", trace.WithAttributes(attribute.String("product.article", article)))
	defer span.End()

	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).Where("article = ?", article).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, repository.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return product, nil
}

// List returns a page of products ordered by article.
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]*entity.Product, int, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.List")
	defer span.End()

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	var products []*entity.Product
	total, err := r.reader.NewSelect().Model((*entity.Product)(nil)).
		Order("article ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx, &products)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, err
	}
	return products, total, nil
}

// Upsert writes a sync batch in one transaction, keyed by article. New
// rows get fresh ids; existing rows keep their article immutable and have
// name, price, stock and synced_at refreshed.
func (r *Repository) Upsert(ctx context.Context, products []*entity.Product, syncedAt time.Time) (int, int, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.Upsert", trace.WithAttributes(attribute.Int("product.count", len(products))))
	defer span.End()

	var created, updated int
	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, product := range products {
			if product.ID == uuid.Nil {
				product.ID = uuid.New()
			}
			product.SyncedAt = &syncedAt
			product.UpdatedAt = syncedAt
			if product.CreatedAt.IsZero() {
				product.CreatedAt = syncedAt
			}

			// xmax = 0 distinguishes fresh inserts from conflict updates.
			var inserted bool
			_, err := tx.NewInsert().Model(product).
				On("CONFLICT (article) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("price = EXCLUDED.price").
				Set("stock = EXCLUDED.stock").
				Set("updated_at = EXCLUDED.updated_at").
				Set("synced_at = EXCLUDED.synced_at").
				Returning("(xmax = 0)").
				Exec(ctx, &inserted)
			if err != nil {
				return err
			}
			if inserted {
				created++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return 0, 0, err
	}
	return created, updated, nil
}

// Delete removes a product. Deletion is rejected while order items still
// reference the article.
func (r *Repository) Delete(ctx context.Context, article string) error {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.Delete", trace.WithAttributes(attribute.String("product.article", article)))
	defer span.End()

	referenced, err := r.writer.NewSelect().Model((*entity.OrderItem)(nil)).
		Where("article = ?", article).
		Exists(ctx)
	if err != nil {
		return err
	}
	if referenced {
		span.SetStatus(codes.Error, "referenced")
		return repository.ErrReferenced
	}

	res, err := r.writer.NewDelete().Model((*entity.Product)(nil)).Where("article = ?", article).Exec(ctx)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrReferenced
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23503"
}

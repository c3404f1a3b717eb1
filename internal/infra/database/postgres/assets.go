package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/my-assets/internal/domain"
)

var assetColumns = []string{
	"blob_id", "owner_id", "file_name", "mime_type", "project_id", "state", "tags", "metadata",
	"size_bytes", "stored_bytes", "version", "created_at", "updated_at",
}

func returning() string {
	return "RETURNING " + strings.Join(assetColumns, ", ")
}

func scanAsset(row pgx.Row) (domain.Asset, error) {
	var (
		a        domain.Asset
		state    string
		metaJSON []byte
	)
	if err := row.Scan(
		&a.BlobID, &a.OwnerID, &a.FileName, &a.MIME, &a.ProjectID, &state, &a.Tags, &metaJSON,
		&a.SizeBytes, &a.StoredBytes, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Asset{}, fmt.Errorf("%w: asset", domain.ErrNotFound)
		}
		return domain.Asset{}, err
	}
	a.State = domain.AssetState(state)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &a.Metadata); err != nil {
			return domain.Asset{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return a, nil
}

func encodeMeta(m []domain.MetaField) ([]byte, error) {
	if m == nil {
		m = []domain.MetaField{}
	}
	return json.Marshal(m)
}

func (r *PGRepo) CreateAsset(ctx context.Context, a domain.Asset) (domain.Asset, error) {
	meta, err := encodeMeta(a.Metadata)
	if err != nil {
		return domain.Asset{}, err
	}
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	state := a.State
	if state == "" {
		state = domain.AssetStaged
	}
	q := r.qb().Insert(r.table()).
		Columns("blob_id", "owner_id", "file_name", "mime_type", "project_id", "state", "tags", "metadata",
			"size_bytes", "stored_bytes").
		Values(a.BlobID, a.OwnerID, a.FileName, a.MIME, a.ProjectID, string(state), tags, meta,
			a.SizeBytes, a.StoredBytes).
		Suffix(returning())

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Asset{}, err
	}
	r.logSQL("CreateAsset", sqlStr, args)

	start := time.Now()
	out, err := scanAsset(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("CreateAsset error after %s: %v", time.Since(start), err)
		return domain.Asset{}, err
	}
	r.logger.Printf("CreateAsset ok in %s blob_id=%s name=%q", time.Since(start), out.BlobID, out.FileName)
	return out, nil
}

func (r *PGRepo) AssetByID(ctx context.Context, id domain.BlobID) (domain.Asset, error) {
	q := r.qb().Select(assetColumns...).From(r.table()).Where(sq.Eq{"blob_id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Asset{}, err
	}
	r.logSQL("AssetByID", sqlStr, args)

	start := time.Now()
	a, err := scanAsset(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("AssetByID error after %s: %v", time.Since(start), err)
		return domain.Asset{}, err
	}
	r.logger.Printf("AssetByID ok in %s blob_id=%s", time.Since(start), a.BlobID)
	return a, nil
}

// ownerListQuery: список владельца, стабильный порядок для постраничной выдачи.
func (r *PGRepo) ownerListQuery(owner domain.OwnerID, f domain.ListFilter) sq.SelectBuilder {
	sb := r.qb().Select(assetColumns...).From(r.table()).
		Where(sq.Eq{"owner_id": owner}).
		OrderBy("created_at ASC", "blob_id ASC")
	if f.Palette {
		sb = sb.Where(sq.Eq{"project_id": nil})
	}
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		sb = sb.Limit(uint64(f.Limit)).Offset(uint64((page - 1) * f.Limit))
	}
	return sb
}

func (r *PGRepo) AssetsByOwner(ctx context.Context, owner domain.OwnerID, f domain.ListFilter) ([]domain.Asset, error) {
	sqlStr, args, err := r.ownerListQuery(owner, f).ToSql()
	if err != nil {
		return nil, err
	}
	r.logSQL("AssetsByOwner", sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("AssetsByOwner query error after %s: %v", time.Since(start), err)
		return nil, err
	}
	defer rows.Close()

	var res []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			r.logger.Printf("AssetsByOwner scan error: %v", err)
			return nil, err
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("AssetsByOwner rows error: %v", err)
		return nil, err
	}
	r.logger.Printf("AssetsByOwner ok in %s count=%d", time.Since(start), len(res))
	return res, nil
}

func (r *PGRepo) UpdatePayloadMeta(ctx context.Context, id domain.BlobID, mime string, sizeBytes, storedBytes int64) (domain.Asset, error) {
	set := map[string]any{
		"size_bytes":   sizeBytes,
		"stored_bytes": storedBytes,
		"version":      sq.Expr("version + 1"),
		"updated_at":   sq.Expr("now()"),
	}
	if mime != "" {
		set["mime_type"] = mime
	}
	return r.updateReturning(ctx, "UpdatePayloadMeta", id, set)
}

func (r *PGRepo) Associate(ctx context.Context, id domain.BlobID, as domain.Association) (domain.Asset, error) {
	meta, err := encodeMeta(as.Metadata)
	if err != nil {
		return domain.Asset{}, err
	}
	tags := as.Tags
	if tags == nil {
		tags = []string{}
	}
	state := domain.AssetAssociated
	if as.ProjectID == nil {
		state = domain.AssetStaged
	}
	return r.updateReturning(ctx, "Associate", id, map[string]any{
		"project_id": as.ProjectID,
		"state":      string(state),
		"tags":       tags,
		"metadata":   meta,
		"version":    sq.Expr("version + 1"),
		"updated_at": sq.Expr("now()"),
	})
}

func (r *PGRepo) updateReturning(ctx context.Context, op string, id domain.BlobID, set map[string]any) (domain.Asset, error) {
	q := r.qb().Update(r.table()).SetMap(set).Where(sq.Eq{"blob_id": id}).Suffix(returning())
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Asset{}, err
	}
	r.logSQL(op, sqlStr, args)

	start := time.Now()
	a, err := scanAsset(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("%s error after %s: %v", op, time.Since(start), err)
		return domain.Asset{}, err
	}
	r.logger.Printf("%s ok in %s blob_id=%s version=%d", op, time.Since(start), a.BlobID, a.Version)
	return a, nil
}

func (r *PGRepo) DeleteAsset(ctx context.Context, id domain.BlobID) error {
	q := r.qb().Delete(r.table()).Where(sq.Eq{"blob_id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return err
	}
	r.logSQL("DeleteAsset", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("DeleteAsset exec error after %s: %v", time.Since(start), err)
		return err
	}
	if tag.RowsAffected() == 0 {
		r.logger.Printf("DeleteAsset no rows affected in %s", time.Since(start))
		return fmt.Errorf("%w: asset %s", domain.ErrNotFound, id)
	}
	r.logger.Printf("DeleteAsset ok in %s blob_id=%s", time.Since(start), id)
	return nil
}

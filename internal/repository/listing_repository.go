package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/access"
	"bookmarket/internal/models"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrStatusChanged   = errors.New("listing status changed concurrently")
)

type ListingSort string

const (
	SortNewest    ListingSort = "newest"
	SortOldest    ListingSort = "oldest"
	SortPriceAsc  ListingSort = "price_asc"
	SortPriceDesc ListingSort = "price_desc"
)

var orderClauses = map[ListingSort]string{
	SortNewest:    "created_at DESC, id DESC",
	SortOldest:    "created_at ASC, id ASC",
	SortPriceAsc:  "price_cents ASC, created_at DESC, id DESC",
	SortPriceDesc: "price_cents DESC, created_at DESC, id DESC",
}

func (s ListingSort) Valid() bool {
	_, ok := orderClauses[s]
	return ok
}

// ListQuery selects a page of listings. Scope is applied before LIMIT/OFFSET
// so a page never has holes for listings the caller cannot see.
type ListQuery struct {
	Scope     access.Scope
	OwnerID   string
	Status    models.ListingStatus
	Condition models.Condition
	Sort      ListingSort
	Limit     int
	Offset    int
}

type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

const listingColumns = `id, owner_id, title, condition, price_cents, description, images,
	seller_name, seller_profile, status, created_at, updated_at`

func (r *ListingRepository) Create(ctx context.Context, listing models.Listing) error {
	const query = `
		INSERT INTO listings (
			id, owner_id, title, condition, price_cents, description, images,
			seller_name, seller_profile, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
	`

	_, err := r.pool.Exec(ctx, query,
		listing.ID,
		listing.OwnerID,
		listing.Title,
		listing.Condition,
		listing.Price,
		listing.Description,
		listing.Images,
		listing.SellerName,
		listing.SellerProfile,
		listing.Status,
		listing.CreatedAt,
	)
	return err
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	listing, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return listing, err
}

func (r *ListingRepository) List(ctx context.Context, q ListQuery) ([]models.Listing, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.Scope.All {
		if q.Scope.OwnerID != "" {
			where = append(where, fmt.Sprintf("(status = 'approved' OR owner_id = %s)", arg(q.Scope.OwnerID)))
		} else {
			where = append(where, "status = 'approved'")
		}
	}
	if q.OwnerID != "" {
		where = append(where, "owner_id = "+arg(q.OwnerID))
	}
	if q.Status != "" {
		where = append(where, "status = "+arg(q.Status))
	}
	if q.Condition != "" {
		where = append(where, "condition = "+arg(q.Condition))
	}

	order, ok := orderClauses[q.Sort]
	if !ok {
		order = orderClauses[SortNewest]
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + listingColumns + ` FROM listings`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + order)
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(q.Limit))
	}
	if q.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(q.Offset))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

// Update writes the mutable fields. The owner guard makes the ownership check
// and the write a single statement.
func (r *ListingRepository) Update(ctx context.Context, listing models.Listing) (models.Listing, error) {
	const query = `
		UPDATE listings
		SET title = $3,
		    condition = $4,
		    price_cents = $5,
		    description = $6,
		    images = $7,
		    seller_profile = $8,
		    updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + listingColumns

	updated, err := scanListing(r.pool.QueryRow(ctx, query,
		listing.ID,
		listing.OwnerID,
		listing.Title,
		listing.Condition,
		listing.Price,
		listing.Description,
		listing.Images,
		listing.SellerProfile,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return updated, err
}

// SetStatus moves a listing from one moderation status to another, failing
// with ErrStatusChanged if someone else moved it first.
func (r *ListingRepository) SetStatus(ctx context.Context, id string, from, to models.ListingStatus) error {
	const query = `
		UPDATE listings
		SET status = $3,
		    updated_at = CASE WHEN status = $3 THEN updated_at ELSE NOW() END
		WHERE id = $1 AND status = $2
	`
	cmd, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStatusChanged
	}
	return nil
}

// Delete removes an owner's listing and returns its image references.
func (r *ListingRepository) Delete(ctx context.Context, id string, ownerID string) ([]string, error) {
	const query = `DELETE FROM listings WHERE id = $1 AND owner_id = $2 RETURNING images`

	var images []string
	if err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(&images); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return images, nil
}

func (r *ListingRepository) CountByStatus(ctx context.Context, status models.ListingStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM listings WHERE status = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ImageInUse reports whether any listing still references url.
func (r *ListingRepository) ImageInUse(ctx context.Context, url string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM listings WHERE images @> ARRAY[$1]::text[])`
	var inUse bool
	if err := r.pool.QueryRow(ctx, query, url).Scan(&inUse); err != nil {
		return false, err
	}
	return inUse, nil
}

func scanListing(row pgx.Row) (models.Listing, error) {
	var listing models.Listing
	err := row.Scan(
		&listing.ID,
		&listing.OwnerID,
		&listing.Title,
		&listing.Condition,
		&listing.Price,
		&listing.Description,
		&listing.Images,
		&listing.SellerName,
		&listing.SellerProfile,
		&listing.Status,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	return listing, err
}

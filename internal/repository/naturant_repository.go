package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/naturants/internal/model"
	"github.com/iliyamo/naturants/internal/query"
)

var NaturantSchema = query.NewSchema("naturants",
	query.Column{Field: "id", Name: "id", Kind: query.Int},
	query.Column{Field: "restaurantName", Name: "name", Kind: query.String},
	query.Column{Field: "slug", Name: "slug", Kind: query.String},
	query.Column{Field: "address", Name: "address", Kind: query.String},
	query.Column{Field: "phone", Name: "phone", Kind: query.String},
	query.Column{Field: "menuItems", Name: "menu_items", Kind: query.JSON},
	query.Column{Field: "employees", Name: "employees", Kind: query.JSON},
	query.Column{Field: "orders", Name: "orders", Kind: query.JSON},
	query.Column{Field: "customers", Name: "customers", Kind: query.JSON},
	query.Column{Field: "ratingsAverage", Name: "ratings_average", Kind: query.Float},
	query.Column{Field: "ratingsQuantity", Name: "ratings_quantity", Kind: query.Int},
	query.Column{Field: "createdAt", Name: "created_at", Kind: query.Time},
	query.Column{Field: "updatedAt", Name: "updated_at", Kind: query.Time},
)

const naturantColumns = "id, name, slug, address, phone, menu_items, employees, orders, customers, " +
	"ratings_average, ratings_quantity, created_at, updated_at"

type NaturantRepo struct{ DB *sql.DB }

func NewNaturantRepo(db *sql.DB) *NaturantRepo { return &NaturantRepo{DB: db} }

func scanNaturant(s rowScanner) (*model.Naturant, error) {
	var (
		n                              model.Naturant
		menu, staff, orders, customers []byte
	)
	err := s.Scan(&n.ID, &n.Name, &n.Slug, &n.Address, &n.Phone, &menu, &staff, &orders, &customers,
		&n.RatingsAverage, &n.RatingsQuantity, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	for _, d := range []struct {
		raw []byte
		dst any
	}{{menu, &n.MenuItems}, {staff, &n.Employees}, {orders, &n.Orders}, {customers, &n.Customers}} {
		if len(d.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(d.raw, d.dst); err != nil {
			return nil, err
		}
	}
	model.PrepareCollections(&n)
	return &n, nil
}

type naturantDocs struct {
	menu, staff, orders, customers []byte
}

func marshalDocs(n *model.Naturant) (naturantDocs, error) {
	var (
		d   naturantDocs
		err error
	)
	if d.menu, err = json.Marshal(n.MenuItems); err != nil {
		return d, err
	}
	if d.staff, err = json.Marshal(n.Employees); err != nil {
		return d, err
	}
	if d.orders, err = json.Marshal(n.Orders); err != nil {
		return d, err
	}
	d.customers, err = json.Marshal(n.Customers)
	return d, err
}

// List runs a shaped list query over naturants.
func (r *NaturantRepo) List(ctx context.Context, p query.Plan) ([]query.Document, error) {
	return list(ctx, r.DB, NaturantSchema, p)
}

// Top returns the n best-rated naturants, ties broken by review count.
func (r *NaturantRepo) Top(ctx context.Context, n int) ([]model.Naturant, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+naturantColumns+" FROM naturants ORDER BY ratings_average DESC, ratings_quantity DESC, id ASC LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Naturant{}
	for rows.Next() {
		nt, err := scanNaturant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *nt)
	}
	return out, rows.Err()
}

// GetByID fetches a naturant by id.
func (r *NaturantRepo) GetByID(ctx context.Context, id uint64) (*model.Naturant, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+naturantColumns+" FROM naturants WHERE id = ? LIMIT 1", id)
	return scanNaturant(row)
}

// Exists reports whether a naturant row with id is present.
func (r *NaturantRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM naturants WHERE id = ? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Create runs the naturant pre-persist step, inserts the row and sets n.ID.
func (r *NaturantRepo) Create(ctx context.Context, n *model.Naturant) error {
	model.PrepareNaturant(n, time.Now())
	d, err := marshalDocs(n)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO naturants (name, slug, address, phone, menu_items, employees, orders, customers,
		                        ratings_average, ratings_quantity, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		n.Name, n.Slug, n.Address, n.Phone, d.menu, d.staff, d.orders, d.customers,
		n.RatingsAverage, n.RatingsQuantity, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// Update writes every editable column of n.  Ratings are owned by
// RefreshRatings and creation time never changes.
func (r *NaturantRepo) Update(ctx context.Context, n *model.Naturant) error {
	model.PrepareNaturant(n, time.Now())
	d, err := marshalDocs(n)
	if err != nil {
		return err
	}
	return affected(r.DB.ExecContext(ctx,
		`UPDATE naturants
		    SET name = ?, slug = ?, address = ?, phone = ?, menu_items = ?, employees = ?, orders = ?,
		        customers = ?, updated_at = ?
		  WHERE id = ?`,
		n.Name, n.Slug, n.Address, n.Phone, d.menu, d.staff, d.orders, d.customers, n.UpdatedAt, n.ID))
}

// Delete removes the naturant and, through the foreign key, its reviews.
func (r *NaturantRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.DB.ExecContext(ctx, "DELETE FROM naturants WHERE id = ?", id))
}

// RefreshRatings recomputes the rating aggregates from the naturant's
// reviews.  A naturant without reviews gets zero for both.
func (r *NaturantRepo) RefreshRatings(ctx context.Context, id uint64) error {
	return affected(r.DB.ExecContext(ctx,
		`UPDATE naturants n
		    SET n.ratings_quantity = (SELECT COUNT(*) FROM reviews r WHERE r.naturant_id = n.id),
		        n.ratings_average  = COALESCE((SELECT ROUND(AVG(r.rating), 1) FROM reviews r WHERE r.naturant_id = n.id), 0)
		  WHERE n.id = ?`, id))
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"product-api/internal/entity"
	"product-api/internal/query"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner, p *entity.Product) error {
	var features, description, imagePath sql.NullString
	var purchaseDate sql.NullTime

	err := row.Scan(&p.ID, &p.Name, &p.Price, &features, &purchaseDate, &description, &p.Size, &imagePath)
	if err != nil {
		return err
	}

	p.Features = features.String
	p.Description = description.String
	p.ImagePath = imagePath.String
	if purchaseDate.Valid {
		t := purchaseDate.Time
		p.PurchaseDate = &t
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// List returns the requested page of products and the total match count
// across all pages. Color names are attached with a single junction join
// over the page's product ids.
func (r *ProductRepository) List(ctx context.Context, params entity.ListParams) ([]entity.ProductListItem, int, error) {
	q := query.Build(params)

	countSQL, countArgs, err := q.CountSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	selectSQL, selectArgs, err := q.SelectSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, selectSQL, selectArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var items []entity.ProductListItem
	var ids []int
	for rows.Next() {
		var p entity.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, err
		}
		items = append(items, entity.ProductListItem{
			ID:           p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Features:     p.Features,
			PurchaseDate: p.PurchaseDate,
			Description:  p.Description,
			Size:         p.Size,
			Colors:       []string{},
		})
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		colorNames, err := r.colorNamesByProduct(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range items {
			if names, ok := colorNames[items[i].ID]; ok {
				items[i].Colors = names
			}
		}
	}

	return items, total, nil
}

func (r *ProductRepository) colorNamesByProduct(ctx context.Context, productIDs []int) (map[int][]string, error) {
	joinSQL, args, err := sq.Select("pc.product_id", "c.name").
		From("product_colors pc").
		Join("colors c ON c.id = pc.color_id").
		Where(sq.Eq{"pc.product_id": productIDs}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, joinSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("joining product colors: %w", err)
	}
	defer rows.Close()

	names := make(map[int][]string)
	for rows.Next() {
		var productID int
		var name string
		if err := rows.Scan(&productID, &name); err != nil {
			return nil, err
		}
		names[productID] = append(names[productID], name)
	}
	return names, rows.Err()
}

// GetByID returns the product with its associated color ids, or
// entity.ErrProductNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*entity.ProductDetail, error) {
	productQuery := `SELECT id, name, price, features, purchase_date, description, size, image_path FROM products WHERE id = ?`

	detail := &entity.ProductDetail{ColorIDs: []int{}}
	err := scanProduct(r.db.QueryRowContext(ctx, productQuery, id), &detail.Product)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	colorQuery := `SELECT color_id FROM product_colors WHERE product_id = ?`
	rows, err := r.db.QueryContext(ctx, colorQuery, id)
	if err != nil {
		return nil, fmt.Errorf("getting colors for product %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var colorID int
		if err := rows.Scan(&colorID); err != nil {
			return nil, err
		}
		detail.ColorIDs = append(detail.ColorIDs, colorID)
	}
	return detail, rows.Err()
}

// Create inserts the product row and its color associations in a single
// transaction and fills in the generated id.
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product, colorIDs []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	productQuery := `INSERT INTO products (name, price, features, purchase_date, description, size, image_path) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, productQuery,
		product.Name, product.Price, nullString(product.Features), product.PurchaseDate,
		nullString(product.Description), product.Size, nullString(product.ImagePath))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting product: %w", err)
	}

	productID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return err
	}
	product.ID = int(productID)

	if err := insertProductColors(ctx, tx, product.ID, colorIDs); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Update overwrites the scalar columns and replaces the full color
// association set in a single transaction. The image_path column is only
// touched when newImagePath is non-nil. Returns entity.ErrProductNotFound
// when the id does not exist.
func (r *ProductRepository) Update(ctx context.Context, product *entity.Product, colorIDs []int, newImagePath *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var existingID int
	err = tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = ?`, product.ID).Scan(&existingID)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return entity.ErrProductNotFound
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	setMap := map[string]interface{}{
		"name":          product.Name,
		"price":         product.Price,
		"features":      nullString(product.Features),
		"purchase_date": product.PurchaseDate,
		"description":   nullString(product.Description),
		"size":          product.Size,
	}
	if newImagePath != nil {
		setMap["image_path"] = nullString(*newImagePath)
	}

	updateSQL, args, err := sq.Update("products").
		SetMap(setMap).
		Where(sq.Eq{"id": product.ID}).
		ToSql()
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, updateSQL, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("updating product %d: %w", product.ID, err)
	}

	// Full replacement of the association set, even when unchanged.
	deleteQuery := `DELETE FROM product_colors WHERE product_id = ?`
	if _, err := tx.ExecContext(ctx, deleteQuery, product.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting colors for product %d: %w", product.ID, err)
	}
	if err := insertProductColors(ctx, tx, product.ID, colorIDs); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func insertProductColors(ctx context.Context, tx *sql.Tx, productID int, colorIDs []int) error {
	insertQuery := `INSERT INTO product_colors (product_id, color_id) VALUES (?, ?)`
	for _, colorID := range colorIDs {
		assoc := entity.ProductColor{ProductID: productID, ColorID: colorID}
		if _, err := tx.ExecContext(ctx, insertQuery, assoc.ProductID, assoc.ColorID); err != nil {
			return fmt.Errorf("inserting color %d for product %d: %w", colorID, productID, err)
		}
	}
	return nil
}

// Delete removes the product row; the schema cascades the junction rows.
// Returns entity.ErrProductNotFound when nothing was deleted.
func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return entity.ErrProductNotFound
	}
	return nil
}

// PriceBounds returns the minimum and maximum product price, or
// entity.ErrEmptyCatalog when no products exist.
func (r *ProductRepository) PriceBounds(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var min, max decimal.NullDecimal

	boundsQuery := `SELECT MIN(price), MAX(price) FROM products`
	if err := r.db.QueryRowContext(ctx, boundsQuery).Scan(&min, &max); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("getting price bounds: %w", err)
	}
	if !min.Valid || !max.Valid {
		return decimal.Zero, decimal.Zero, entity.ErrEmptyCatalog
	}
	return min.Decimal, max.Decimal, nil
}

// ListColors returns the reference color set.
func (r *ProductRepository) ListColors(ctx context.Context) ([]entity.Color, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM colors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing colors: %w", err)
	}
	defer rows.Close()

	var colors []entity.Color
	for rows.Next() {
		var color entity.Color
		if err := rows.Scan(&color.ID, &color.Name); err != nil {
			return nil, err
		}
		colors = append(colors, color)
	}
	return colors, rows.Err()
}

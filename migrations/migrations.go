package migrations

import (
	"database/sql"
	"time"
)

// AutoMigrateProducts creates the products table if it does not exist.
func AutoMigrateProducts(retries int, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS products (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(16,2) NOT NULL,
			features TEXT,
			purchase_date DATETIME,
			description TEXT,
			size VARCHAR(50) NOT NULL,
			image_path VARCHAR(255)
		);
	`
	return execWithRetry(db, query, retries)
}

// AutoMigrateColors creates the colors table if it does not exist.
func AutoMigrateColors(retries int, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS colors (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(50) NOT NULL
		);
	`
	return execWithRetry(db, query, retries)
}

// AutoMigrateProductColors creates the product/color junction table if it
// does not exist. Deleting a product cascades its junction rows.
func AutoMigrateProductColors(retries int, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS product_colors (
			id INT AUTO_INCREMENT PRIMARY KEY,
			product_id INT NOT NULL,
			color_id INT NOT NULL,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
			FOREIGN KEY (color_id) REFERENCES colors(id)
		);
	`
	return execWithRetry(db, query, retries)
}

// SeedColors inserts the reference color set when the table is empty.
// Colors are reference data; this seed stands in for external population.
func SeedColors(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM colors`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, name := range []string{"Red", "Green", "Blue", "Black", "White", "Yellow"} {
		if _, err := db.Exec(`INSERT INTO colors (name) VALUES (?)`, name); err != nil {
			return err
		}
	}
	return nil
}

func execWithRetry(db *sql.DB, query string, retries int) error {
	_, err := db.Exec(query)
	for i := 0; err != nil && i < retries; i++ {
		time.Sleep(1 * time.Second)
		_, err = db.Exec(query)
	}
	return err
}

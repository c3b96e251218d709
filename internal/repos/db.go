package repos

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx so repos can run inside a transaction.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Open connects and applies the schema without seeding.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenDB connects, applies the schema and seeds demo data.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := Seed(db); err != nil {
		return nil, err
	}
	return db, nil
}

// InTx runs fn in a transaction, committing only when fn returns nil.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// IsUniqueViolation reports a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports a FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func Migrate(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users, OAuth accounts & sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  image TEXT,
  password_hash TEXT,              -- NULL for OAuth-only accounts
  role TEXT NOT NULL DEFAULT 'USER' CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS accounts(
  provider TEXT NOT NULL,
  provider_user_id TEXT NOT NULL,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (provider, provider_user_id)
);

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Catalog
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  image TEXT,
  icon TEXT,
  parent_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);

CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  short_description TEXT,
  price NUMERIC NOT NULL CHECK (price >= 0),
  compare_price NUMERIC,
  inventory INTEGER NOT NULL DEFAULT 0 CHECK (inventory >= 0),
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  images_json TEXT,
  tags_json TEXT,
  brand TEXT,
  processor TEXT,
  ram TEXT,
  storage TEXT,
  graphics TEXT,
  featured INTEGER NOT NULL DEFAULT 0,
  rating REAL NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_name       ON products(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_products_featured   ON products(featured);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

CREATE TABLE IF NOT EXISTS product_variants(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  value TEXT NOT NULL,
  price NUMERIC,
  inventory INTEGER NOT NULL DEFAULT 0 CHECK (inventory >= 0),
  sku TEXT UNIQUE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_variants_product ON product_variants(product_id);

-- Carts (one per user)
CREATE TABLE IF NOT EXISTS carts(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS cart_items(
  id TEXT PRIMARY KEY,
  cart_id    TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  variant_id TEXT NULL REFERENCES product_variants(id) ON DELETE CASCADE,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_line ON cart_items(cart_id, product_id, COALESCE(variant_id,''));

CREATE TABLE IF NOT EXISTS cart_merges(
  id TEXT NOT NULL,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (cart_id, id)
);

-- Orders (read by admin statistics)
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING'
    CHECK (status IN ('PENDING','PAID','SHIPPED','DELIVERED','CANCELED')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id  TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  variant_id TEXT NULL REFERENCES product_variants(id) ON DELETE SET NULL,
  quantity INTEGER NOT NULL,
  price NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
`
	_, err := db.Exec(schema)
	return err
}

// Seed inserts demo catalog, users and orders. Safe to run on every start.
func Seed(db *sqlx.DB) error {
	if err := seedCatalog(db); err != nil {
		return err
	}
	if err := seedUsers(db); err != nil {
		return err
	}
	return seedOrders(db)
}

func seedCatalog(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo categories/products/variants")

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`INSERT INTO categories(id,slug,name,description,icon,parent_id) VALUES
		  ('c-laptops','laptops','Laptops','Portable computers','laptop',NULL),
		  ('c-gaming','gaming-laptops','Gaming Laptops','High refresh, discrete graphics','gamepad','c-laptops'),
		  ('c-accessories','accessories','Accessories','Docks, mice and more','plug',NULL)`,

		`INSERT INTO products(id,slug,name,description,short_description,price,compare_price,inventory,category_id,
		                      images_json,tags_json,brand,processor,ram,storage,graphics,featured,rating) VALUES
		  ('p-aero14','aero-14','Aero 14 Ultrabook','Thin and light 14-inch ultrabook.','14" ultrabook',
		   1299.00,1499.00,5,'c-laptops','["/images/aero14/main.jpg"]','["ultrabook","travel"]',
		   'Aero','Core Ultra 7','16GB','512GB SSD','Integrated',1,4.6),
		  ('p-titan16','titan-16','Titan 16 Gaming','16-inch gaming laptop with RTX graphics.','16" gaming',
		   2199.99,NULL,8,'c-gaming','["/images/titan16/main.jpg","/images/titan16/side.jpg"]','["gaming"]',
		   'Titan','Ryzen 9','32GB','1TB SSD','RTX 4070',1,4.8),
		  ('p-dock','usb-c-dock','USB-C Dock','Seven port USB-C docking station.','7-in-1 dock',
		   89.50,NULL,0,'c-accessories','["/images/dock/main.jpg"]','["usb-c"]',
		   'Portly',NULL,NULL,NULL,NULL,0,4.1),
		  ('p-mouse','wireless-mouse','Wireless Mouse','Silent wireless mouse.','Silent mouse',
		   24.99,29.99,40,'c-accessories','["/images/mouse/main.jpg"]','["wireless"]',
		   'Clicky',NULL,NULL,NULL,NULL,0,4.3)`,

		`INSERT INTO product_variants(id,product_id,name,value,price,inventory,sku) VALUES
		  ('v-titan16-32','p-titan16','RAM','32GB',NULL,3,'TTN16-32'),
		  ('v-titan16-64','p-titan16','RAM','64GB',2499.99,2,'TTN16-64')`,
	}
	for _, q := range stmts {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// seedUsers ensures two USERs, one ADMIN and one OAuth-only USER exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		if raw == "" {
			return u{ID: id, Email: email, Name: name, Role: role}
		}
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-alice", "alice@techshop.test", "Alice", "USER", "Passw0rd!"),
		mk("u-bob", "bob@techshop.test", "Bob", "USER", "Passw0rd!"),
		mk("u-admin", "admin@techshop.test", "Admin", "ADMIN", "Passw0rd!"),
		mk("u-carol", "carol@techshop.test", "Carol", "USER", ""),
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,NULLIF(?,''),?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO accounts(provider,provider_user_id,user_id)
		SELECT 'google','google-carol','u-carol'
		WHERE EXISTS (SELECT 1 FROM users WHERE id='u-carol')
		ON CONFLICT(provider,provider_user_id) DO NOTHING
	`); err != nil {
		return err
	}

	return tx.Commit()
}

func seedOrders(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO orders(id,order_number,user_id,total,status)
		SELECT 'o-1001','TS-1001','u-alice',1299.00,'DELIVERED'
		WHERE NOT EXISTS (SELECT 1 FROM orders WHERE id='o-1001')
		  AND EXISTS (SELECT 1 FROM products WHERE id='p-aero14')
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO order_items(order_id,product_id,quantity,price)
		SELECT 'o-1001','p-aero14',1,1299.00
		WHERE NOT EXISTS (SELECT 1 FROM order_items WHERE order_id='o-1001')
		  AND EXISTS (SELECT 1 FROM orders WHERE id='o-1001')
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO orders(id,order_number,user_id,total,status)
		SELECT 'o-1002','TS-1002','u-bob',49.98,'PENDING'
		WHERE NOT EXISTS (SELECT 1 FROM orders WHERE id='o-1002')
		  AND EXISTS (SELECT 1 FROM products WHERE id='p-mouse')
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO order_items(order_id,product_id,quantity,price)
		SELECT 'o-1002','p-mouse',2,24.99
		WHERE NOT EXISTS (SELECT 1 FROM order_items WHERE order_id='o-1002')
		  AND EXISTS (SELECT 1 FROM orders WHERE id='o-1002')
	`); err != nil {
		return err
	}
	return tx.Commit()
}

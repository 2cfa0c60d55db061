package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline catalog data if DB is empty
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Catalog reference data
CREATE TABLE IF NOT EXISTS categories(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS materials(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  color TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS shapes(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

-- Fixed price catalog: one row per (material, shape, dimension)
CREATE TABLE IF NOT EXISTS price_entries(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  material_id INTEGER NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  shape_id INTEGER NOT NULL REFERENCES shapes(id) ON DELETE CASCADE,
  category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
  dimension_label TEXT NOT NULL,
  unit_price NUMERIC NOT NULL CHECK (unit_price >= 0),
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT,
  UNIQUE(material_id, shape_id, dimension_label)
);

CREATE TABLE IF NOT EXISTS discounts(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  code TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL CHECK (kind IN ('percentage','fixed')),
  value NUMERIC NOT NULL CHECK (value > 0),
  min_order_amount NUMERIC NOT NULL DEFAULT 0,
  max_usage INTEGER,
  max_usage_per_user INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  expires_at TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('client','controller','admin')),
  phone TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id INTEGER NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Carts: at most one pending cart per identity. The partial unique
-- indexes are the actual race-safety mechanism for find-or-create.
CREATE TABLE IF NOT EXISTS carts(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NULL REFERENCES users(id) ON DELETE CASCADE,
  session_token TEXT NULL,
  discount_id INTEGER NULL REFERENCES discounts(id) ON DELETE SET NULL,
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','ordered')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_user_pending
  ON carts(user_id) WHERE status='pending' AND user_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_token_pending
  ON carts(session_token) WHERE status='pending' AND session_token IS NOT NULL;

CREATE TABLE IF NOT EXISTS cart_items(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  cart_id INTEGER NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  entry_id INTEGER NOT NULL REFERENCES price_entries(id) ON DELETE RESTRICT,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  fixed_unit_price NUMERIC NOT NULL,
  engraving_text TEXT NOT NULL DEFAULT '',
  mounting_option TEXT NOT NULL DEFAULT '',
  custom_options TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_cart_items_cart ON cart_items(cart_id);

-- Quotes
CREATE TABLE IF NOT EXISTS quotes(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  reference TEXT NOT NULL UNIQUE,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
  order_id INTEGER NULL,
  client_details TEXT NOT NULL,
  material_id INTEGER NOT NULL REFERENCES materials(id) ON DELETE RESTRICT,
  shape_id INTEGER NOT NULL REFERENCES shapes(id) ON DELETE RESTRICT,
  entry_id INTEGER NULL REFERENCES price_entries(id) ON DELETE RESTRICT,
  discount_id INTEGER NULL REFERENCES discounts(id) ON DELETE SET NULL,
  quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
  dimension_label TEXT NOT NULL,
  price_source TEXT NOT NULL CHECK (price_source IN ('standard','custom')),
  unit_price NUMERIC NOT NULL,
  base_price NUMERIC NOT NULL,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  final_price NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'sent'
    CHECK (status IN ('draft','sent','calculated','ordered','rejected','archived')),
  details_snapshot TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_quotes_user ON quotes(user_id);
CREATE INDEX IF NOT EXISTS idx_quotes_discount ON quotes(discount_id);

-- Orders: one per quote, full snapshot of the quote at conversion time
CREATE TABLE IF NOT EXISTS orders(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  reference TEXT NOT NULL UNIQUE,
  quote_id INTEGER NOT NULL UNIQUE REFERENCES quotes(id) ON DELETE RESTRICT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
  payment_reference TEXT,
  final_price NUMERIC NOT NULL,
  material_id INTEGER NOT NULL REFERENCES materials(id) ON DELETE RESTRICT,
  shape_id INTEGER NOT NULL REFERENCES shapes(id) ON DELETE RESTRICT,
  entry_id INTEGER NULL REFERENCES price_entries(id) ON DELETE RESTRICT,
  quantity INTEGER NOT NULL DEFAULT 1,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  dimension_label TEXT NOT NULL DEFAULT '',
  client_details TEXT NOT NULL DEFAULT '',
  details_snapshot TEXT NOT NULL DEFAULT '',
  shipping_address TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_payment'
    CHECK (status IN ('pending_payment','paid','processing','shipped','completed','canceled')),
  completed_at TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);

CREATE TABLE IF NOT EXISTS favorites(
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  quote_id INTEGER NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (user_id, quote_id)
);

CREATE TABLE IF NOT EXISTS attachments(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  quote_id INTEGER NULL REFERENCES quotes(id) ON DELETE SET NULL,
  file_name TEXT NOT NULL,
  path TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_attachments_user ON attachments(user_id);

CREATE TABLE IF NOT EXISTS activities(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  actor_id INTEGER NULL REFERENCES users(id) ON DELETE SET NULL,
  action TEXT NOT NULL,
  subject_kind TEXT NOT NULL DEFAULT '',
  subject_id INTEGER,
  data_snapshot TEXT NOT NULL DEFAULT '',
  ip TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_activities_subject ON activities(subject_kind, subject_id);

-- Per-material stock, reservation bookkeeping only
CREATE TABLE IF NOT EXISTS inventory(
  material_id INTEGER PRIMARY KEY REFERENCES materials(id) ON DELETE CASCADE,
  qty INTEGER NOT NULL DEFAULT 0 CHECK (qty >= 0),
  updated_at TEXT
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo catalog/discounts/inventory")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO categories(id,name,description) VALUES
	  (1,'Plaques professionnelles','Plaques de porte et de façade gravées'),
	  (2,'Signalétique','Panneaux et signalétique intérieure')`)

	tx.MustExec(`INSERT INTO materials(id,category_id,name,slug,description,color) VALUES
	  (1,1,'Laiton poli','laiton-poli','Laiton massif poli miroir','gold'),
	  (2,1,'Inox brossé','inox-brosse','Acier inoxydable finition brossée','silver'),
	  (3,2,'Plexiglas','plexiglas','Plexiglas transparent 8mm','clear')`)

	tx.MustExec(`INSERT INTO shapes(id,name,description) VALUES
	  (1,'Rectangle','Coins droits ou arrondis'),
	  (2,'Ovale','Ellipse pleine'),
	  (3,'Rond','Disque plein')`)

	tx.MustExec(`INSERT INTO price_entries(id,material_id,shape_id,category_id,dimension_label,unit_price) VALUES
	  (1,1,1,1,'20x30cm',10000),
	  (2,1,1,1,'30x50cm',25000),
	  (3,2,1,1,'20x30cm',15000),
	  (4,3,2,2,'15x20cm',8000)`)

	tx.MustExec(`INSERT INTO discounts(name,code,kind,value,min_order_amount) VALUES
	  ('Soldes été','ETE10','percentage',10,50000),
	  ('Bienvenue','WELCOME5000','fixed',5000,20000)`)

	tx.MustExec(`INSERT INTO inventory(material_id,qty) VALUES (1,40),(2,25),(3,60)`)

	return tx.Commit()
}

// seedUsers ensures one user per role exists (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		Email, Name, Role, Raw string
	}
	users := []u{
		{"admin@gravado.test", "Admin", "admin", "Passw0rd!"},
		{"controle@gravado.test", "Contrôleur", "controller", "Passw0rd!"},
		{"claire@gravado.test", "Claire", "client", "Passw0rd!"},
		{"karim@gravado.test", "Karim", "client", "Passw0rd!"},
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		h, err := bcrypt.GenerateFromPassword([]byte(x.Raw), 12)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO users(email,name,password_hash,role)
			VALUES(?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.Email, x.Name, string(h), x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}

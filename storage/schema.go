package storage

// Schemas differ only in key and numeric column types; every query in this
// package is written with ? placeholders and rebound for the driver.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS parties (
	id          SERIAL PRIMARY KEY,
	full_name   VARCHAR(100)     NOT NULL,
	mobile      VARCHAR(15)      NOT NULL UNIQUE,
	location    VARCHAR(200)     NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	user_type   VARCHAR(10)      NOT NULL DEFAULT 'buyer',
	created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS listings (
	id            SERIAL PRIMARY KEY,
	seller_id     INTEGER          NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
	rice_type     VARCHAR(50)      NOT NULL,
	quantity_kg   DOUBLE PRECISION NOT NULL CHECK (quantity_kg > 0),
	price_per_kg  DOUBLE PRECISION NOT NULL CHECK (price_per_kg > 0),
	quality_grade VARCHAR(2)       NOT NULL DEFAULT 'A',
	organic       BOOLEAN          NOT NULL DEFAULT FALSE,
	is_available  BOOLEAN          NOT NULL DEFAULT TRUE,
	description   TEXT             NOT NULL DEFAULT '',
	harvest_date  DATE,
	created_at    TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ      NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_listings_type_available ON listings(rice_type, is_available);
CREATE INDEX IF NOT EXISTS idx_listings_seller         ON listings(seller_id);

CREATE TABLE IF NOT EXISTS chat_exchanges (
	id          SERIAL PRIMARY KEY,
	party_id    INTEGER     NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
	message     TEXT        NOT NULL,
	response    TEXT        NOT NULL,
	intent      VARCHAR(30) NOT NULL,
	source      VARCHAR(10) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_chat_party ON chat_exchanges(party_id, created_at);

CREATE TABLE IF NOT EXISTS market_stats (
	id                SERIAL PRIMARY KEY,
	rice_type         VARCHAR(50)      NOT NULL,
	average_price     DOUBLE PRECISION NOT NULL,
	min_price         DOUBLE PRECISION NOT NULL,
	max_price         DOUBLE PRECISION NOT NULL,
	trend             VARCHAR(12)      NOT NULL,
	demand            VARCHAR(8)       NOT NULL,
	listing_count     INTEGER          NOT NULL,
	total_quantity_kg DOUBLE PRECISION NOT NULL,
	is_synthetic      BOOLEAN          NOT NULL,
	computed_at       TIMESTAMPTZ      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_market_stats_type ON market_stats(rice_type, computed_at);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS parties (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name   TEXT      NOT NULL,
	mobile      TEXT      NOT NULL UNIQUE,
	location    TEXT      NOT NULL DEFAULT '',
	latitude    REAL,
	longitude   REAL,
	user_type   TEXT      NOT NULL DEFAULT 'buyer',
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS listings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	seller_id     INTEGER   NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
	rice_type     TEXT      NOT NULL,
	quantity_kg   REAL      NOT NULL CHECK (quantity_kg > 0),
	price_per_kg  REAL      NOT NULL CHECK (price_per_kg > 0),
	quality_grade TEXT      NOT NULL DEFAULT 'A',
	organic       BOOLEAN   NOT NULL DEFAULT 0,
	is_available  BOOLEAN   NOT NULL DEFAULT 1,
	description   TEXT      NOT NULL DEFAULT '',
	harvest_date  DATE,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listings_type_available ON listings(rice_type, is_available);
CREATE INDEX IF NOT EXISTS idx_listings_seller         ON listings(seller_id);

CREATE TABLE IF NOT EXISTS chat_exchanges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	party_id    INTEGER   NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
	message     TEXT      NOT NULL,
	response    TEXT      NOT NULL,
	intent      TEXT      NOT NULL,
	source      TEXT      NOT NULL,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_party ON chat_exchanges(party_id, created_at);

CREATE TABLE IF NOT EXISTS market_stats (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	rice_type         TEXT      NOT NULL,
	average_price     REAL      NOT NULL,
	min_price         REAL      NOT NULL,
	max_price         REAL      NOT NULL,
	trend             TEXT      NOT NULL,
	demand            TEXT      NOT NULL,
	listing_count     INTEGER   NOT NULL,
	total_quantity_kg REAL      NOT NULL,
	is_synthetic      BOOLEAN   NOT NULL,
	computed_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_market_stats_type ON market_stats(rice_type, computed_at);
`

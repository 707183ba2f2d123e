// Package migration holds the SQLite schema. Rating is the append-only
// source of truth; everything else is derived state that can be rebuilt
// from it.
package migration

const Create = `
CREATE TABLE IF NOT EXISTS User (
  name TEXT PRIMARY KEY,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  last_recomputed DATETIME
);

CREATE TABLE IF NOT EXISTS Rating (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user TEXT NOT NULL,
  item TEXT NOT NULL,
  artist TEXT NOT NULL DEFAULT '',
  rating REAL NOT NULL,
  genres TEXT NOT NULL DEFAULT '[]',
  descriptors TEXT NOT NULL DEFAULT '[]',
  features TEXT,
  item_age_years REAL NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  FOREIGN KEY (user) REFERENCES User(name)
);

CREATE INDEX IF NOT EXISTS idx_rating_user_date ON Rating(user, created_at);

CREATE TABLE IF NOT EXISTS Artist (
  name TEXT PRIMARY KEY,
  genres TEXT NOT NULL DEFAULT '[]',
  tags_last_updated DATETIME
);

CREATE TABLE IF NOT EXISTS PreferenceModel (
  user TEXT PRIMARY KEY,
  learned TEXT NOT NULL,
  total_predictions INTEGER NOT NULL DEFAULT 0,
  correct_predictions INTEGER NOT NULL DEFAULT 0,
  current_streak INTEGER NOT NULL DEFAULT 0,
  longest_streak INTEGER NOT NULL DEFAULT 0,
  surprise_count INTEGER NOT NULL DEFAULT 0,
  prediction_accuracy REAL NOT NULL DEFAULT 0,
  decipher_progress REAL NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  FOREIGN KEY (user) REFERENCES User(name)
);

CREATE TABLE IF NOT EXISTS Pattern (
  user TEXT NOT NULL,
  id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  status TEXT NOT NULL,
  confidence REAL NOT NULL,
  first_detected INTEGER NOT NULL,
  last_confirmed INTEGER NOT NULL,
  occurrence_count INTEGER NOT NULL,
  importance_score REAL NOT NULL DEFAULT 0,
  PRIMARY KEY (user, id)
);

CREATE TABLE IF NOT EXISTS Episode (
  user TEXT NOT NULL,
  id TEXT NOT NULL,
  start_time INTEGER NOT NULL,
  payload TEXT NOT NULL,
  PRIMARY KEY (user, id)
);

CREATE TABLE IF NOT EXISTS ConsolidatedTaste (
  user TEXT NOT NULL,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  trend TEXT NOT NULL,
  recent_avg REAL NOT NULL,
  older_avg REAL NOT NULL,
  total_reviews INTEGER NOT NULL,
  confidence REAL NOT NULL,
  PRIMARY KEY (user, name, type)
);

CREATE TABLE IF NOT EXISTS DriftState (
  user TEXT PRIMARY KEY,
  snapshot TEXT,
  alerts TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS Prediction (
  id TEXT PRIMARY KEY,
  user TEXT NOT NULL,
  item TEXT NOT NULL,
  payload TEXT NOT NULL,
  actual REAL,
  actual_descriptors TEXT,
  class TEXT,
  recorded_at INTEGER,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prediction_user ON Prediction(user, created_at);

CREATE TABLE IF NOT EXISTS CatalogCache (
  kind TEXT NOT NULL,
  key TEXT NOT NULL,
  payload TEXT NOT NULL,
  fetched_at INTEGER NOT NULL,
  PRIMARY KEY (kind, key)
);
`

package sqlite

const schemaSQL = `
CREATE TABLE IF NOT EXISTS plans (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    instrument_id    TEXT NOT NULL,
    amount           TEXT NOT NULL,
    start_date       TEXT NOT NULL,
    frequency        TEXT NOT NULL CHECK (frequency IN ('WEEKLY', 'MONTHLY', 'QUARTERLY')),
    active           INTEGER NOT NULL DEFAULT 1,
    units            TEXT NOT NULL DEFAULT '0',
    invested_amount  TEXT NOT NULL DEFAULT '0',
    goal_id          TEXT,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_user ON plans(user_id);
CREATE INDEX IF NOT EXISTS idx_plans_active ON plans(active);

CREATE TABLE IF NOT EXISTS ledger_records (
    id           TEXT PRIMARY KEY,
    plan_id      TEXT NOT NULL REFERENCES plans(id) ON DELETE RESTRICT,
    record_type  TEXT NOT NULL,
    amount       TEXT NOT NULL,
    due_date     TEXT NOT NULL,
    state        TEXT NOT NULL CHECK (state IN ('PENDING', 'PAID', 'FAILED', 'SKIPPED')),
    price        TEXT,
    units        TEXT,
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL,
    UNIQUE (plan_id, due_date)
);

CREATE INDEX IF NOT EXISTS idx_ledger_plan_type_due ON ledger_records(plan_id, record_type, due_date);

CREATE TABLE IF NOT EXISTS valuation_points (
    id             TEXT PRIMARY KEY,
    instrument_id  TEXT NOT NULL,
    as_of          TEXT NOT NULL,
    price          TEXT NOT NULL,
    UNIQUE (instrument_id, as_of)
);

CREATE TABLE IF NOT EXISTS notifications (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    plan_id     TEXT REFERENCES plans(id) ON DELETE SET NULL,
    kind        TEXT NOT NULL DEFAULT '',
    message     TEXT NOT NULL,
    is_read     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
`

package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS plans (
    id               UUID PRIMARY KEY,
    user_id          UUID NOT NULL,
    instrument_id    TEXT NOT NULL,
    amount           NUMERIC(20, 4) NOT NULL CHECK (amount > 0),
    start_date       DATE NOT NULL,
    frequency        TEXT NOT NULL CHECK (frequency IN ('WEEKLY', 'MONTHLY', 'QUARTERLY')),
    active           BOOLEAN NOT NULL DEFAULT TRUE,
    units            NUMERIC NOT NULL DEFAULT 0 CHECK (units >= 0),
    invested_amount  NUMERIC(20, 4) NOT NULL DEFAULT 0,
    goal_id          UUID,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_plans_user ON plans(user_id);
CREATE INDEX IF NOT EXISTS idx_plans_active ON plans(active) WHERE active;

CREATE TABLE IF NOT EXISTS ledger_records (
    id           UUID PRIMARY KEY,
    plan_id      UUID NOT NULL REFERENCES plans(id) ON DELETE RESTRICT,
    record_type  TEXT NOT NULL,
    amount       NUMERIC(20, 4) NOT NULL CHECK (amount > 0),
    due_date     DATE NOT NULL,
    state        TEXT NOT NULL CHECK (state IN ('PENDING', 'PAID', 'FAILED', 'SKIPPED')),
    price        NUMERIC,
    units        NUMERIC,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_ledger_plan_due_date UNIQUE (plan_id, due_date)
);

CREATE INDEX IF NOT EXISTS idx_ledger_plan_type_due ON ledger_records(plan_id, record_type, due_date DESC);

CREATE TABLE IF NOT EXISTS valuation_points (
    id             UUID PRIMARY KEY,
    instrument_id  TEXT NOT NULL,
    as_of          TIMESTAMPTZ NOT NULL,
    price          NUMERIC NOT NULL,
    CONSTRAINT uq_valuation_instrument_as_of UNIQUE (instrument_id, as_of)
);

CREATE TABLE IF NOT EXISTS notifications (
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL,
    plan_id     UUID REFERENCES plans(id) ON DELETE SET NULL,
    kind        TEXT NOT NULL DEFAULT '',
    message     TEXT NOT NULL,
    is_read     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC);
`

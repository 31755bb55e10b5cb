package database

import "database/sql"

// schema is run on startup to ensure tables exist. Statements are ordered
// by foreign key dependency: users first, then friendships, then the
// tables referencing them.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username VARCHAR(50) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    avatar_url TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS friendships (
    id BIGSERIAL PRIMARY KEY,
    user1_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    user2_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    streak INT NOT NULL DEFAULT 0,
    total_checkins INT NOT NULL DEFAULT 0,
    longest_streak INT NOT NULL DEFAULT 0,
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    user1_base_debt INT NOT NULL DEFAULT 0,
    user1_limit_days INT NOT NULL DEFAULT 7,
    user1_last_interaction TIMESTAMPTZ,
    user1_was_bankrupt BOOLEAN NOT NULL DEFAULT FALSE,
    user1_bankrupt_at TIMESTAMPTZ,
    user1_last_bankruptcy_email TIMESTAMPTZ,
    user1_calculated_debt INT NOT NULL DEFAULT 0,
    user1_calculated_at TIMESTAMPTZ,
    user1_days_missed INT NOT NULL DEFAULT 0,
    user1_is_bankrupt BOOLEAN NOT NULL DEFAULT FALSE,
    user1_is_in_warning_zone BOOLEAN NOT NULL DEFAULT FALSE,
    user1_days_until_bankrupt INT NOT NULL DEFAULT 0,

    user2_base_debt INT NOT NULL DEFAULT 0,
    user2_limit_days INT NOT NULL DEFAULT 7,
    user2_last_interaction TIMESTAMPTZ,
    user2_was_bankrupt BOOLEAN NOT NULL DEFAULT FALSE,
    user2_bankrupt_at TIMESTAMPTZ,
    user2_last_bankruptcy_email TIMESTAMPTZ,
    user2_calculated_debt INT NOT NULL DEFAULT 0,
    user2_calculated_at TIMESTAMPTZ,
    user2_days_missed INT NOT NULL DEFAULT 0,
    user2_is_bankrupt BOOLEAN NOT NULL DEFAULT FALSE,
    user2_is_in_warning_zone BOOLEAN NOT NULL DEFAULT FALSE,
    user2_days_until_bankrupt INT NOT NULL DEFAULT 0,

    CONSTRAINT friendships_distinct_users CHECK (user1_id <> user2_id),
    CONSTRAINT friendships_unique_pair UNIQUE (user1_id, user2_id)
);

CREATE TABLE IF NOT EXISTS checkins (
    id BIGSERIAL PRIMARY KEY,
    friendship_id BIGINT NOT NULL REFERENCES friendships(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    checked_in_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    proof TEXT,
    debt_before INT NOT NULL DEFAULT 0,
    streak_at_checkin INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS bankruptcy_history (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    friend_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    friendship_id BIGINT NOT NULL REFERENCES friendships(id) ON DELETE CASCADE,
    debt_at_bankruptcy INT NOT NULL,
    declared_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    resolved_at TIMESTAMPTZ,
    restored_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS mercy_requests (
    id BIGSERIAL PRIMARY KEY,
    friendship_id BIGINT NOT NULL REFERENCES friendships(id) ON DELETE CASCADE,
    requester_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    message TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    condition TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    resolved_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS notifications (
    id BIGSERIAL PRIMARY KEY,
    recipient_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    from_user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
    kind VARCHAR(40) NOT NULL,
    message TEXT NOT NULL,
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    related_entity_type VARCHAR(40),
    related_entity_id BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_friendships_user1_id ON friendships(user1_id);
CREATE INDEX IF NOT EXISTS idx_friendships_user2_id ON friendships(user2_id);
CREATE INDEX IF NOT EXISTS idx_checkins_friendship_id ON checkins(friendship_id);
CREATE INDEX IF NOT EXISTS idx_checkins_user_id ON checkins(user_id);
CREATE INDEX IF NOT EXISTS idx_bankruptcy_history_user_id ON bankruptcy_history(user_id);
CREATE INDEX IF NOT EXISTS idx_mercy_requests_friendship_id ON mercy_requests(friendship_id);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient_id ON notifications(recipient_id);
`

// Migrate executes the schema setup.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Command migrate applies the database schema and seeds the initial
// administrator account. Safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/bloodbank-api/pkg/config"
	"github.com/noah-isme/bloodbank-api/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL,
    role TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    last_login TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMPTZ,
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS donors (
    id UUID PRIMARY KEY,
    full_name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    phone TEXT NOT NULL DEFAULT '',
    blood_group TEXT NOT NULL,
    health_status TEXT NOT NULL DEFAULT 'Eligible',
    last_donation_date TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS recipients (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    phone TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS blood_banks (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    location TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS donations (
    id UUID PRIMARY KEY,
    donor_id UUID NOT NULL REFERENCES donors(id),
    bank_id UUID NOT NULL REFERENCES blood_banks(id),
    blood_group TEXT NOT NULL,
    units INTEGER NOT NULL CHECK (units > 0),
    donation_date TIMESTAMPTZ NOT NULL,
    expiry_date TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL DEFAULT 'valid',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_donations_status_expiry ON donations (status, expiry_date);

CREATE TABLE IF NOT EXISTS blood_requests (
    id UUID PRIMARY KEY,
    recipient_id UUID NOT NULL REFERENCES recipients(id),
    bank_id UUID NOT NULL REFERENCES blood_banks(id),
    blood_group TEXT NOT NULL,
    units_requested INTEGER NOT NULL CHECK (units_requested > 0),
    required_by TIMESTAMPTZ NOT NULL,
    purpose TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    approved_by UUID REFERENCES users(id),
    fulfillment_date TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_blood_requests_status ON blood_requests (status);

CREATE TABLE IF NOT EXISTS blood_inventory (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    bank_id UUID NOT NULL REFERENCES blood_banks(id),
    blood_group TEXT NOT NULL,
    available_units INTEGER NOT NULL DEFAULT 0 CHECK (available_units >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (bank_id, blood_group)
);

CREATE TABLE IF NOT EXISTS activity_logs (
    id UUID PRIMARY KEY,
    actor_id UUID,
    actor_name TEXT NOT NULL DEFAULT '',
    activity_type TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    details JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_activity_logs_created_at ON activity_logs (created_at DESC);
`

func main() {
	var (
		adminEmail    string
		adminPassword string
		adminName     string
	)
	flag.StringVar(&adminEmail, "admin-email", envOr("ADMIN_EMAIL", "admin@bloodbank.local"), "Seed admin email")
	flag.StringVar(&adminPassword, "admin-password", os.Getenv("ADMIN_PASSWORD"), "Seed admin password")
	flag.StringVar(&adminName, "admin-name", envOr("ADMIN_NAME", "Administrator"), "Seed admin display name")
	flag.Parse()

	if adminPassword == "" {
		log.Fatal("admin password required: set ADMIN_PASSWORD or pass -admin-password")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	log.Println("schema applied")

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}

	const seedAdmin = `INSERT INTO users (id, email, password_hash, full_name, role, active)
		VALUES ($1, $2, $3, $4, 'ADMIN', TRUE)
		ON CONFLICT (email) DO NOTHING`
	res, err := db.ExecContext(ctx, seedAdmin, uuid.NewString(), adminEmail, string(hash), adminName)
	if err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}
	if rows, _ := res.RowsAffected(); rows == 1 {
		log.Printf("admin account %s created", adminEmail)
	} else {
		log.Printf("admin account %s already present", adminEmail)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Project groups templates under one set of brand tokens. It is owned by a
// single user and never deleted.
type Project struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	BrandTokens BrandTokens     `json:"brand_tokens"`
	BrandSource json.RawMessage `json:"brand_source,omitempty"` // raw result of the last brand extraction
	UserID      uuid.UUID       `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

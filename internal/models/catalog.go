package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Organization is reference data, never mutated by the evaluation flow.
type Organization struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name" validate:"required"`
	City   string `db:"city" json:"city"`
	Region string `db:"region" json:"region"`
}

type Dimension struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}

// ScaleLabels maps a 1-5 score to its human-readable description.
// Stored as a JSON text column.
type ScaleLabels map[int]string

func (l ScaleLabels) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *ScaleLabels) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported scale_labels type %T", src)
	}
}

type Question struct {
	ID          int64       `db:"id" json:"id"`
	DimensionID int64       `db:"dimension_id" json:"dimension_id"`
	Text        string      `db:"text" json:"text"`
	OrderIndex  int         `db:"order_index" json:"order_index"`
	ScaleLabels ScaleLabels `db:"scale_labels" json:"scale_labels"`
}

func (o *Organization) Validate() error {
	validate := validator.New()
	return validate.Struct(o)
}

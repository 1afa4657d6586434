package model

import (
	"fmt"
	"strings"
)

const (
	ServiceMoveOut       = "P"
	ServiceMoveIn        = "D"
	ServiceCancel        = "B"
	ServiceCancelMoveOut = "BP"
	ServiceSameVillage   = "PSD"
	ServiceLocal         = "L"
)

const (
	StatusInProgress = "DIPROSES"
	StatusDone       = "SELESAI"
	StatusRejected   = "DITOLAK"
)

// Record is a pencatatan row: one residency-change transaction under a registration number.
type Record struct {
	ID          int    `json:"id,omitempty"`
	RegNumber   int    `json:"reg_number,omitempty" validate:"omitempty,min=1"`
	RegDate     string `json:"reg_date" validate:"required,datetime=2006-01-02"`
	ServiceCode string `json:"service_code" validate:"required,oneof=P D B BP PSD L"`
	NIK         string `json:"nik" validate:"required,numeric,len=16"`
	Name        string `json:"name" validate:"required,min=2,max=150"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Email       string `json:"email" validate:"required,email,max=150"`
	NoSKPWNI    string `json:"no_skpwni,omitempty" validate:"omitempty,max=100"`
	NoSKDWNI    string `json:"no_skdwni,omitempty" validate:"omitempty,max=100"`
	NoSKBWNI    string `json:"no_skbwni,omitempty" validate:"omitempty,max=100"`
	NoKK        string `json:"no_kk,omitempty" validate:"omitempty,numeric,len=16"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=DIPROSES SELESAI DITOLAK"`
	ArchivePath string `json:"archive_path,omitempty"`
	Notes       string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ArchiveCode returns yyyymmdd_{reg_number}_{service_code}, or "" when any part is missing.
func ArchiveCode(date SystemDate, regNumber int, serviceCode string) string {
	if date.IsZero() || regNumber <= 0 || strings.TrimSpace(serviceCode) == "" {
		return ""
	}
	return fmt.Sprintf("%s_%d_%s", date.Compact(), regNumber, serviceCode)
}

type RecordFilter struct {
	Search      string
	Status      string
	ServiceCode string
	StartDate   string
	EndDate     string
	Page        int
	PerPage     int
}

type CreatedResult struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}

package model

import "time"

type IssueInput struct {
	Expiration *time.Time `json:"expiration"`
	HWID       string     `json:"hwid" validate:"max=128"`
	User       string     `json:"user" validate:"max=20"`
}

type RenewInput struct {
	NewExpiration *time.Time `json:"newExpiration" validate:"required"`
	PerformedBy   string     `json:"performedBy" validate:"max=64"`
}

type ValidateInput struct {
	LicenseKey string `json:"licenseKey" validate:"required"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	HWID       string `json:"hwid"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	HWID     string `json:"hwid"`
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

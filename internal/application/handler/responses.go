package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"himstay/internal/application/models"
)

// ApplicationResponse is the wire shape of one application.
type ApplicationResponse struct {
	ID                string     `json:"id"`
	ApplicationNumber string     `json:"applicationNumber"`
	PropertyName      string     `json:"propertyName"`
	District          string     `json:"district"`
	Status            string     `json:"status"`
	TotalFee          *string    `json:"totalFee,omitempty"`
	SubmittedAt       *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt        *time.Time `json:"approvedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// CertificateResponse is the wire shape of an issued certificate.
type CertificateResponse struct {
	CertificateNumber string    `json:"certificateNumber"`
	ApplicationID     string    `json:"applicationId"`
	IssuedDate        time.Time `json:"issuedDate"`
	ValidUpto         time.Time `json:"validUpto"`
}

func FromApplication(app *models.Application) ApplicationResponse {
	resp := ApplicationResponse{
		ID:                app.ID,
		ApplicationNumber: app.ApplicationNumber,
		PropertyName:      app.PropertyName,
		District:          app.District,
		Status:            string(app.Status),
		SubmittedAt:       app.SubmittedAt,
		ApprovedAt:        app.ApprovedAt,
		CreatedAt:         app.CreatedAt,
		UpdatedAt:         app.UpdatedAt,
	}
	if app.TotalFee.Valid {
		fee := app.TotalFee.Decimal.String()
		resp.TotalFee = &fee
	}
	return resp
}

func FromCertificate(cert *models.Certificate) CertificateResponse {
	return CertificateResponse{
		CertificateNumber: cert.CertificateNumber,
		ApplicationID:     cert.ApplicationID,
		IssuedDate:        cert.IssuedDate,
		ValidUpto:         cert.ValidUpto,
	}
}

// parseAmount parses a decimal amount from its wire form.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/internal/inquiries"
	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
)

type stubInquiryService struct {
	inquiries.Service
	actor      *pkgAuth.Actor
	created    *inquiries.CreateInput
	importMeta *inquiries.ImportMeta
	imported   []byte
}

func (s *stubInquiryService) Create(ctx context.Context, input inquiries.CreateInput, actor *pkgAuth.Actor) (*models.Inquiry, error) {
	s.created = &input
	s.actor = actor
	return &models.Inquiry{ID: uuid.New(), InquiryNo: "RFQ-2026-0001"}, nil
}

func (s *stubInquiryService) ImportFromExcel(ctx context.Context, r io.Reader, meta inquiries.ImportMeta, actor *pkgAuth.Actor) (*models.Inquiry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.imported = data
	s.importMeta = &meta
	return &models.Inquiry{ID: uuid.New(), InquiryNo: "RFQ-2026-0002"}, nil
}

func TestInquiryCreateAnonymous(t *testing.T) {
	stub := &stubInquiryService{}
	body := `{"contactName":"Li Wei","contactEmail":"li@example.com","items":[{"productId":"` + uuid.New().String() + `","quantity":200,"targetPrice":"1.25"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body))
	rec := serve(InquiryCreate(stub, testLogger()), withRoute(req, nil, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.actor != nil {
		t.Fatal("anonymous inquiry should reach the service without an actor")
	}
	if stub.created == nil || stub.created.Items[0].TargetPrice == nil || stub.created.Items[0].TargetPrice.String() != "1.25" {
		t.Fatalf("target price not forwarded: %+v", stub.created)
	}
}

func TestInquiryCreateRejectsBadEmail(t *testing.T) {
	stub := &stubInquiryService{}
	body := `{"contactName":"Li","contactEmail":"nope","items":[{"productId":"` + uuid.New().String() + `","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(body))
	rec := serve(InquiryCreate(stub, testLogger()), withRoute(req, nil, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if stub.created != nil {
		t.Fatal("service must not run for invalid input")
	}
}

func TestInquiryImport(t *testing.T) {
	upload := func(t *testing.T, filename string, content []byte) *http.Request {
		t.Helper()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if err := mw.WriteField("contactName", " Li Wei "); err != nil {
			t.Fatal(err)
		}
		if err := mw.WriteField("contactEmail", "li@example.com"); err != nil {
			t.Fatal(err)
		}
		if err := mw.WriteField("currency", "USD"); err != nil {
			t.Fatal(err)
		}
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
		if err := mw.Close(); err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	t.Run("forwards file and contact fields", func(t *testing.T) {
		stub := &stubInquiryService{}
		rec := serve(InquiryImport(stub, testLogger()), withRoute(upload(t, "RFQ.XLSX", []byte("sheet-bytes")), buyerActor(), nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if string(stub.imported) != "sheet-bytes" {
			t.Fatalf("file content not forwarded: %q", stub.imported)
		}
		if stub.importMeta.ContactName != "Li Wei" || stub.importMeta.Currency != "USD" {
			t.Fatalf("unexpected meta %+v", stub.importMeta)
		}
		if stub.importMeta.Notes != nil {
			t.Fatal("blank optional fields should stay nil")
		}
	})

	t.Run("rejects other extensions", func(t *testing.T) {
		stub := &stubInquiryService{}
		rec := serve(InquiryImport(stub, testLogger()), withRoute(upload(t, "rfq.csv", []byte("a,b")), buyerActor(), nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if stub.importMeta != nil {
			t.Fatal("service must not run for a csv upload")
		}
	})

	t.Run("requires a file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries/import", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		rec := serve(InquiryImport(&stubInquiryService{}, testLogger()), withRoute(req, buyerActor(), nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("requires an actor", func(t *testing.T) {
		rec := serve(InquiryImport(&stubInquiryService{}, testLogger()), withRoute(upload(t, "rfq.xlsx", nil), nil, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

package spapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

// ReportTypeOrders is the flat-file order report used for large backfills.
const ReportTypeOrders = "GET_FLAT_FILE_ALL_ORDERS_DATA_BY_LAST_UPDATE_GENERAL"

type createReportRequest struct {
	ReportType     string   `json:"reportType"`
	MarketplaceIDs []string `json:"marketplaceIds"`
	DataStartTime  string   `json:"dataStartTime"`
	DataEndTime    string   `json:"dataEndTime"`
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

func (c *httpClient) CreateReport(ctx context.Context, reportType string, marketplaceIDs []string, start, end time.Time) (string, error) {
	var out createReportResponse
	err := c.call(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetBody(createReportRequest{
				ReportType:     reportType,
				MarketplaceIDs: marketplaceIDs,
				DataStartTime:  start.UTC().Format(time.RFC3339),
				DataEndTime:    end.UTC().Format(time.RFC3339),
			}).
			SetResult(&out).
			Post("/reports/2021-06-30/reports")
	})
	if err != nil {
		return "", err
	}
	if out.ReportID == "" {
		return "", fmt.Errorf("report creation returned no report id")
	}
	return out.ReportID, nil
}

func (c *httpClient) GetReport(ctx context.Context, reportID string) (*Report, error) {
	var out Report
	err := c.call(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetResult(&out).Get(fmt.Sprintf("/reports/2021-06-30/reports/%s", reportID))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetReportDocument(ctx context.Context, documentID string) (*ReportDocument, error) {
	var out ReportDocument
	err := c.call(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetResult(&out).Get(fmt.Sprintf("/reports/2021-06-30/documents/%s", documentID))
	})
	if err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, fmt.Errorf("report document %s has no download url", documentID)
	}
	return &out, nil
}

// DownloadDocument fetches the document bytes from the pre-signed url. The
// url is not an API endpoint: no auth header, no throttling.
func (c *httpClient) DownloadDocument(ctx context.Context, doc *ReportDocument) ([]byte, error) {
	resp, err := c.download.R().SetContext(ctx).Get(doc.URL)
	if err != nil {
		return nil, fmt.Errorf("document download: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("document download status %d", resp.StatusCode())
	}

	body := resp.Body()
	if doc.CompressionAlgorithm != "GZIP" {
		return body, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("document gunzip: %w", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("document gunzip: %w", err)
	}
	return out, nil
}

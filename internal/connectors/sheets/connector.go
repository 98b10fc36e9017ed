package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"grnflow/internal/config"
)

type Connector struct {
	service *sheets.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := sheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

func (c *Connector) Header(ctx context.Context, spreadsheetID, sheetName string) ([]string, error) {
	resp, err := c.service.Spreadsheets.Values.
		Get(spreadsheetID, fmt.Sprintf("%s!1:1", sheetName)).
		MajorDimension("ROWS").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return toStrings(resp.Values[0]), nil
}

func (c *Connector) WriteHeader(ctx context.Context, spreadsheetID, sheetName string, columns []string) error {
	row := make([]interface{}, len(columns))
	for i, col := range columns {
		row[i] = col
	}
	body := &sheets.ValueRange{Values: [][]interface{}{row}}

	_, err := c.service.Spreadsheets.Values.
		Update(spreadsheetID, fmt.Sprintf("%s!1:1", sheetName), body).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	return err
}

func (c *Connector) Values(ctx context.Context, spreadsheetID, valueRange string) ([][]string, error) {
	resp, err := c.service.Spreadsheets.Values.
		Get(spreadsheetID, valueRange).
		MajorDimension("ROWS").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, toStrings(row))
	}
	return out, nil
}

func (c *Connector) Append(ctx context.Context, spreadsheetID, valueRange string, rows [][]string) error {
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		cells := make([]interface{}, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		values = append(values, cells)
	}
	body := &sheets.ValueRange{Values: values}

	_, err := c.service.Spreadsheets.Values.
		Append(spreadsheetID, valueRange, body).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	return err
}

func toStrings(row []interface{}) []string {
	out := make([]string, 0, len(row))
	for _, cell := range row {
		out = append(out, fmt.Sprint(cell))
	}
	return out
}

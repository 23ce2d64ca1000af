package sheets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	settingsWeekCell = "Settings!A2"
	submissionsSheet = "Main"
	leaderboardSheet = "Leaderboard & Points"
	pointsColumn     = "total_points"
)

// Client wraps the Google Sheets and Drive APIs for the challenge
// spreadsheet and photo folder. It does not retry; failures propagate
// to the caller.
type Client struct {
	sheetsSvc     *sheets.Service
	driveSvc      *drive.Service
	spreadsheetID string
	folderID      string
}

// Credentials resolves the service-account key. It accepts an inline
// JSON blob (raw or base64) or a file path, and fails when neither is
// configured.
func Credentials(inlineJSON, filePath string) (option.ClientOption, error) {
	if inlineJSON != "" {
		if decoded, err := base64.StdEncoding.DecodeString(inlineJSON); err == nil {
			return option.WithCredentialsJSON(decoded), nil
		}
		return option.WithCredentialsJSON([]byte(inlineJSON)), nil
	}
	if filePath != "" {
		if _, err := os.Stat(filePath); err != nil {
			return nil, fmt.Errorf("credentials file %s: %w", filePath, err)
		}
		return option.WithCredentialsFile(filePath), nil
	}
	return nil, fmt.Errorf("no service account credentials configured")
}

func NewClient(ctx context.Context, spreadsheetID, folderID string, creds option.ClientOption) (*Client, error) {
	sheetsSvc, err := sheets.NewService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("init sheets service: %w", err)
	}

	driveSvc, err := drive.NewService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}

	return &Client{
		sheetsSvc:     sheetsSvc,
		driveSvc:      driveSvc,
		spreadsheetID: spreadsheetID,
		folderID:      folderID,
	}, nil
}

// GetCurrentWeek reads the configured week number from the settings
// sheet. A blank or non-numeric cell means the week is not set.
func (c *Client) GetCurrentWeek(ctx context.Context) (int, bool, error) {
	resp, err := c.sheetsSvc.Spreadsheets.Values.Get(c.spreadsheetID, settingsWeekCell).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read %s: %w", settingsWeekCell, err)
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return 0, false, nil
	}

	raw := strings.TrimSpace(fmt.Sprintf("%v", resp.Values[0][0]))
	week, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, nil
	}
	return week, true, nil
}

// UploadPhoto stores the photo in the configured Drive folder and
// returns a shareable URL. The anyone-with-link permission is best
// effort; service accounts on shared drives sometimes cannot grant it,
// and the upload still counts.
func (c *Client) UploadPhoto(ctx context.Context, data []byte, filename string) (string, error) {
	meta := &drive.File{Name: filename}
	if c.folderID != "" {
		meta.Parents = []string{c.folderID}
	}

	created, err := c.driveSvc.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id", "webViewLink", "webContentLink").
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create drive file: %w", err)
	}

	_, err = c.driveSvc.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		log.Printf("sheets: permission grant for %s failed: %v", created.Id, err)
	}

	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	if created.WebContentLink != "" {
		return created.WebContentLink, nil
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// AppendSubmission adds one submission row to the main sheet.
// Duplicate submissions for the same user and week are allowed.
func (c *Client) AppendSubmission(ctx context.Context, userID int64, username string, week int, timestamp, answer, score string) error {
	row := []interface{}{
		strconv.FormatInt(userID, 10),
		username,
		timestamp,
		strconv.Itoa(week),
		answer,
		score,
	}

	_, err := c.sheetsSvc.Spreadsheets.Values.Append(c.spreadsheetID, submissionsSheet, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func (c *Client) readLeaderboard(ctx context.Context) ([]Record, error) {
	resp, err := c.sheetsSvc.Spreadsheets.Values.Get(c.spreadsheetID, leaderboardSheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, row)
	}
	return zipRecords(rows), nil
}

// LeaderboardTop returns the n highest-scoring records, stably sorted
// so equal scores keep their sheet order.
func (c *Client) LeaderboardTop(ctx context.Context, n int) ([]Record, error) {
	records, err := c.readLeaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return topByPoints(records, pointsColumn, n), nil
}

// UserPointsAndRank scans the leaderboard for the first row matching
// userID. The rank comes from the sheet's own rank column; an unknown
// user gets zero points and an empty rank.
func (c *Client) UserPointsAndRank(ctx context.Context, userID int64) (float64, string, error) {
	records, err := c.readLeaderboard(ctx)
	if err != nil {
		return 0, "", err
	}
	points, rank := userPointsAndRank(records, userID)
	return points, rank, nil
}

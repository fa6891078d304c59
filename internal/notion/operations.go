package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrNotFound is returned by lookups that come up empty.
var ErrNotFound = errors.New("notion: not found")

// ConfigEntry is one row of the configuration database: a named target with
// its system prompt.
type ConfigEntry struct {
	Name         string `json:"name"`
	TargetDBID   string `json:"target_db_id"`
	SystemPrompt string `json:"system_prompt"`
}

// GetPageInfo fetches details of a specific page.
func (c *Client) GetPageInfo(ctx context.Context, pageID string) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, "pages/"+pageID, nil)
}

// FetchConfigEntries reads the configuration database. Rows without a name
// are dropped.
func (c *Client) FetchConfigEntries(ctx context.Context, configDBID string) ([]ConfigEntry, error) {
	res, err := c.do(ctx, http.MethodPost, "databases/"+configDBID+"/query", []byte(`{}`))
	if err != nil {
		return nil, err
	}

	var entries []ConfigEntry
	res.Get("results").ForEach(func(_, page gjson.Result) bool {
		props := page.Get("properties")
		name := firstPlainText(props.Get("Name"))
		if name == "" {
			return true
		}
		entries = append(entries, ConfigEntry{
			Name:         name,
			TargetDBID:   strings.TrimSpace(firstPlainText(props.Get("TargetDB_ID"))),
			SystemPrompt: firstPlainText(props.Get("SystemPrompt")),
		})
		return true
	})
	return entries, nil
}

// GetDatabaseSchema fetches and distills the schema of a database. A page ID
// (Notion answers 400) maps to ErrNotDatabase.
func (c *Client) GetDatabaseSchema(ctx context.Context, databaseID string) (Schema, error) {
	res, err := c.do(ctx, http.MethodGet, "databases/"+databaseID, nil, http.StatusBadRequest)
	if errors.Is(err, ErrStatusIgnored) {
		return nil, ErrNotDatabase
	}
	if err != nil {
		return nil, err
	}
	return ParseSchema(res.Get("properties")), nil
}

// FetchRecentPages returns the properties of the most recently created pages,
// used as few-shot examples for the AI.
func (c *Client) FetchRecentPages(ctx context.Context, databaseID string, limit int) ([]gjson.Result, error) {
	if limit <= 0 {
		limit = 3
	}
	body, _ := sjson.SetBytes([]byte(`{"sorts":[{"timestamp":"created_time","direction":"descending"}]}`), "page_size", limit)
	res, err := c.do(ctx, http.MethodPost, "databases/"+databaseID+"/query", body)
	if err != nil {
		return nil, err
	}
	var pages []gjson.Result
	res.Get("results").ForEach(func(_, page gjson.Result) bool {
		pages = append(pages, page.Get("properties"))
		return true
	})
	return pages, nil
}

// Page identifies a created page.
type Page struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreatePage creates a page in the target database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties []byte) (*Page, error) {
	body := []byte(`{"parent":{},"properties":{}}`)
	body, _ = sjson.SetBytes(body, "parent.database_id", databaseID)
	body, _ = sjson.SetRawBytes(body, "properties", properties)

	res, err := c.do(ctx, http.MethodPost, "pages", body)
	if err != nil {
		return nil, err
	}
	page := &Page{ID: res.Get("id").String(), URL: res.Get("url").String()}
	if page.ID == "" {
		return nil, errors.New("notion: page created without id")
	}
	return page, nil
}

// CreateDatabase creates a database under the given parent page and returns
// its ID.
func (c *Client) CreateDatabase(ctx context.Context, parentPageID, title string, properties []byte) (string, error) {
	body := []byte(`{"parent":{"type":"page_id"},"title":[{"type":"text","text":{}}],"properties":{}}`)
	body, _ = sjson.SetBytes(body, "parent.page_id", parentPageID)
	body, _ = sjson.SetBytes(body, "title.0.text.content", title)
	body, _ = sjson.SetRawBytes(body, "properties", properties)

	res, err := c.do(ctx, http.MethodPost, "databases", body)
	if err != nil {
		return "", err
	}
	id := res.Get("id").String()
	if id == "" {
		return "", fmt.Errorf("notion: failed to create database %q", title)
	}
	return id, nil
}

// FetchChildren lists the child blocks of a page, with archived blocks
// filtered out. Useful for discovering pages and databases under the root.
func (c *Client) FetchChildren(ctx context.Context, parentID string, limit int) ([]gjson.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("blocks/%s/children?page_size=%d", parentID, limit)
	res, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var blocks []gjson.Result
	res.Get("results").ForEach(func(_, block gjson.Result) bool {
		if !block.Get("archived").Bool() {
			blocks = append(blocks, block)
		}
		return true
	})
	return blocks, nil
}

// SearchChildDatabase finds a child database with the given title under a
// parent page and returns its full database object.
func (c *Client) SearchChildDatabase(ctx context.Context, parentPageID, title string) (gjson.Result, error) {
	children, err := c.FetchChildren(ctx, parentPageID, 100)
	if err != nil {
		return gjson.Result{}, err
	}
	for _, block := range children {
		if block.Get("type").String() != "child_database" {
			continue
		}
		if block.Get("child_database.title").String() == title {
			return c.do(ctx, http.MethodGet, "databases/"+block.Get("id").String(), nil)
		}
	}
	return gjson.Result{}, ErrNotFound
}

// AppendContent appends the text as paragraph blocks, chunked to the
// per-item character limit and batched to Notion's 100-block request cap.
func (c *Client) AppendContent(ctx context.Context, pageID, content string) error {
	blocks := ContentBlocks(content)
	if len(blocks) == 0 {
		return nil
	}

	for i := 0; i < len(blocks); i += blockBatchSize {
		end := i + blockBatchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		body := []byte(`{"children":[]}`)
		for _, block := range blocks[i:end] {
			body, _ = sjson.SetRawBytes(body, "children.-1", block)
		}
		if _, err := c.do(ctx, http.MethodPatch, "blocks/"+pageID+"/children", body); err != nil {
			return err
		}
	}
	return nil
}

// QueryDatabase returns the most recently edited entries of a database.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, limit int) ([]gjson.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	body, _ := sjson.SetBytes([]byte(`{"sorts":[{"timestamp":"last_edited_time","direction":"descending"}]}`), "page_size", limit)
	res, err := c.do(ctx, http.MethodPost, "databases/"+databaseID+"/query", body)
	if err != nil {
		return nil, err
	}
	var pages []gjson.Result
	res.Get("results").ForEach(func(_, page gjson.Result) bool {
		pages = append(pages, page)
		return true
	})
	return pages, nil
}

// firstPlainText extracts the first plain_text of a title or rich_text
// property, mirroring how config rows are read.
func firstPlainText(prop gjson.Result) string {
	switch prop.Get("type").String() {
	case "title":
		return prop.Get("title.0.plain_text").String()
	case "rich_text":
		return prop.Get("rich_text.0.plain_text").String()
	}
	return ""
}

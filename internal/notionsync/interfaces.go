package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService defines the interface for interacting with Notion API.
// This interface enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties and icon.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties, icon *notionapi.Icon) (*notionapi.Page, error)

	// DeletePage archives a page.
	DeletePage(ctx context.Context, pageID string) error
}

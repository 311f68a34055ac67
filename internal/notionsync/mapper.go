package notionsync

import (
	"time"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/jomei/notionapi"
)

// Page icons by transaction type.
const (
	IncomeEmoji  = "📈"
	ExpenseEmoji = "💸"
	DefaultEmoji = "📄"
)

// TransactionToNotionProperties converts a parsed transaction to Notion properties.
// Maps fields according to the Notion transaction database schema:
// Transaction (title), Amount, Date, Category, Type, Payment Method, Notes.
// at is the time the notification was posted on the device.
func TransactionToNotionProperties(tx domain.Transaction, at time.Time) notionapi.Properties {
	date := notionapi.Date(at)

	return notionapi.Properties{
		"Transaction": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Transaction,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: float64(tx.Amount),
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &date,
			},
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Category,
			},
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Type),
			},
		},
		"Payment Method": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.PaymentMethod,
			},
		},
		"Notes": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Notes,
					},
				},
			},
		},
	}
}

// IconForType returns the page icon for a transaction type.
func IconForType(t domain.TransactionType) *notionapi.Icon {
	var emoji notionapi.Emoji
	switch t {
	case domain.TransactionTypeIncome:
		emoji = IncomeEmoji
	case domain.TransactionTypeExpense:
		emoji = ExpenseEmoji
	default:
		emoji = DefaultEmoji
	}

	return &notionapi.Icon{
		Type:  "emoji",
		Emoji: &emoji,
	}
}

package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/codectx/repograph/helper"
	"github.com/codectx/repograph/model"
	loadSql "github.com/codectx/repograph/sql"
	"github.com/google/uuid"
)

// ConversationsDBHandlerFunctions defines the interface for conversation database operations.
type ConversationsDBHandlerFunctions interface {
	InsertTurn(turn *model.ConversationTurn) error
	SelectRecentTurns(sessionID *uuid.UUID, limit int) ([]*model.ConversationTurn, error)
}

// ConversationsDBHandler handles conversation turn database operations
type ConversationsDBHandler struct {
	db *helper.Database
}

// NewConversationsDBHandler creates a new conversations database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewConversationsDBHandler(db *helper.Database, force bool) (*ConversationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	conversationsDbHandler := &ConversationsDBHandler{
		db: db,
	}

	err := loadSql.LoadConversationsSql(conversationsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load conversations sql", err)
	}

	err = conversationsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ConversationsDBHandler")

	return conversationsDbHandler, nil
}

// CreateTable creates the 'conversation_turns' table in the database.
// If the table already exists, it does not create it again.
func (h *ConversationsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_conversations();`)
	if err != nil {
		log.Panicf("error initializing conversation_turns table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table conversation_turns")

	return nil
}

// InsertTurn appends one turn to the conversation history
func (h *ConversationsDBHandler) InsertTurn(turn *model.ConversationTurn) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_turn($1, $2, $3, $4)`,
		turn.SessionID,
		turn.Role,
		turn.Content,
		turn.Metadata,
	)

	err := row.Scan(
		&turn.ID,
		&turn.SessionID,
		&turn.Role,
		&turn.Content,
		&turn.Metadata,
		&turn.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRecentTurns returns the most recent turns for a session in
// chronological order. A nil sessionID selects across all sessions.
func (h *ConversationsDBHandler) SelectRecentTurns(sessionID *uuid.UUID, limit int) ([]*model.ConversationTurn, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_recent_turns($1, $2)`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var turns []*model.ConversationTurn
	for rows.Next() {
		turn := &model.ConversationTurn{}
		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Role,
			&turn.Content,
			&turn.Metadata,
			&turn.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		turns = append(turns, turn)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	// select_recent_turns returns newest first, reverse to chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

package caseflowsdk

import (
	"context"
	"fmt"
	"sync"
)

// OptimisticBoard keeps a local board that reflects moves before the server
// confirms them. A failed move restores the snapshot taken before it.
type OptimisticBoard struct {
	client  *Client
	filters Filters

	mu    sync.Mutex
	board Board
}

func NewOptimisticBoard(c *Client, f Filters) *OptimisticBoard {
	return &OptimisticBoard{client: c, filters: f}
}

// Refresh replaces the local board with the server's.
func (b *OptimisticBoard) Refresh(ctx context.Context) error {
	fresh, err := b.client.Board(ctx, b.filters)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.board = fresh
	b.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current local board.
func (b *OptimisticBoard) Snapshot() Board {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyBoard(b.board)
}

// Move applies the move locally, then calls the API. On error the pre-move
// board is restored and the error returned.
func (b *OptimisticBoard) Move(ctx context.Context, caseID, stageID string) (Transition, error) {
	b.mu.Lock()
	before := b.board
	moved, ok := moveCard(before, caseID, stageID)
	if !ok {
		b.mu.Unlock()
		return Transition{}, fmt.Errorf("case %s or stage %s not on board", caseID, stageID)
	}
	b.board = moved
	b.mu.Unlock()

	t, err := b.client.MoveCase(ctx, caseID, stageID)
	if err != nil {
		b.mu.Lock()
		b.board = before
		b.mu.Unlock()
		return Transition{}, err
	}
	return t, nil
}

// moveCard returns a new board with caseID at the end of stageID's column.
// in is not modified. It mirrors Board.WithMove in internal/board and the two
// must change together.
func moveCard(in Board, caseID, stageID string) (Board, bool) {
	from, to := -1, -1
	var card Card
	for i, col := range in.Columns {
		if col.Stage.ID == stageID {
			to = i
		}
		for _, c := range col.Cards {
			if c.CaseID == caseID {
				from, card = i, c
			}
		}
	}
	if from < 0 || to < 0 {
		return in, false
	}
	out := Board{Columns: make([]Column, len(in.Columns)), Total: in.Total}
	for i, col := range in.Columns {
		cards := make([]Card, 0, len(col.Cards)+1)
		for _, c := range col.Cards {
			if i == from && c.CaseID == caseID {
				continue
			}
			cards = append(cards, c)
		}
		if i == to {
			card.StageID = stageID
			card.Assigned = true
			cards = append(cards, card)
		}
		out.Columns[i] = Column{Stage: col.Stage, Count: len(cards), Cards: cards}
	}
	return out, true
}

func copyBoard(in Board) Board {
	out := Board{Columns: make([]Column, len(in.Columns)), Total: in.Total}
	for i, col := range in.Columns {
		out.Columns[i] = Column{Stage: col.Stage, Count: col.Count, Cards: append([]Card(nil), col.Cards...)}
	}
	return out
}

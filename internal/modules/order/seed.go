// README: Loads the demo orders into a store at startup.
package order

import (
	"context"
	"errors"
	"time"

	"semas/internal/seed"
	"semas/internal/types"
)

// SeedDemo inserts the embedded demo orders, skipping ones already present.
// Orders are created oldest-listed last so listings keep the seed order.
func SeedDemo(ctx context.Context, store Store, now time.Time) error {
	data, err := seed.Load()
	if err != nil {
		return err
	}
	for i := len(data.Orders) - 1; i >= 0; i-- {
		so := data.Orders[i]
		if _, err := store.Get(ctx, types.ID(so.ID)); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		st, ok := ParseStatus(so.Status)
		if !ok {
			return ErrBadRequest
		}
		o := &Order{
			ID:           types.ID(so.ID),
			CustomerID:   types.ID(so.CustomerID),
			CustomerName: so.CustomerName,
			ServiceType:  so.ServiceType,
			Status:       st,
			Date:         now.Add(so.DateOffset),
			Address:      so.Address,
			Description:  so.Description,
			Messages:     []Message{},
			CreatedAt:    now,
		}
		if so.TechnicianID != "" {
			tid := types.ID(so.TechnicianID)
			o.TechnicianID = &tid
		}
		for _, sm := range so.Messages {
			o.Messages = append(o.Messages, Message{
				ID:        types.ID(sm.ID),
				SenderID:  types.ID(sm.SenderID),
				Text:      sm.Text,
				Timestamp: now.Add(-sm.Age).UnixMilli(),
			})
		}
		if err := store.Create(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

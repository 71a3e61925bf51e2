// README: Concurrency tests for order state transitions (run with -race).
package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"semas/internal/types"
)

func TestConcurrentAcceptSameOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		o := mustCreateOrder(t, svc, "c_accept_same_time")

		const n = 8
		errs := make(chan error, n)
		start := make(chan struct{})
		var wg sync.WaitGroup

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(tid types.ID) {
				defer wg.Done()
				<-start
				_, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, TechnicianID: tid})
				errs <- err
			}(types.ID(fmt.Sprintf("t%d", i)))
		}

		close(start)
		wg.Wait()
		close(errs)

		success := 0
		for err := range errs {
			if err == nil {
				success++
				continue
			}
			if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if success != 1 {
			t.Fatalf("expected exactly 1 success, got %d", success)
		}

		got, err := svc.Get(ctx, o.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != StatusAccepted || got.TechnicianID == nil {
			t.Fatalf("expected accepted with technician, got %s %v", got.Status, got.TechnicianID)
		}
	})
}

func TestConcurrentAcceptVsCancel(t *testing.T) {
	forEachStore(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		o := mustCreateOrder(t, svc, "c_accept_cancel")

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		start := make(chan struct{})

		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Accept(ctx, AcceptCommand{OrderID: o.ID, TechnicianID: "t1"})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Cancel(ctx, CancelCommand{OrderID: o.ID, ActorID: "c_accept_cancel"})
			errs <- err
		}()

		close(start)
		wg.Wait()
		close(errs)

		success := 0
		for err := range errs {
			if err == nil {
				success++
				continue
			}
			if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if success < 1 {
			t.Fatalf("expected at least 1 success, got %d", success)
		}

		got, err := svc.Get(ctx, o.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if success == 2 && got.Status != StatusCancelled {
			t.Fatalf("expected cancelled after accept+cancel, got %s", got.Status)
		}
		if got.Status != StatusAccepted && got.Status != StatusCancelled {
			t.Fatalf("unexpected final status: %s", got.Status)
		}
	})
}

func TestConcurrentRate(t *testing.T) {
	forEachStore(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		o := mustCreateOrder(t, svc, "c_rate_race")
		completeOrder(t, svc, o.ID, "t1")

		const n = 5
		errs := make(chan error, n)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 1; i <= n; i++ {
			wg.Add(1)
			go func(r int) {
				defer wg.Done()
				<-start
				_, err := svc.Rate(ctx, RateCommand{OrderID: o.ID, Rating: r})
				errs <- err
			}(i)
		}
		close(start)
		wg.Wait()
		close(errs)

		success := 0
		for err := range errs {
			if err == nil {
				success++
				continue
			}
			if !errors.Is(err, ErrAlreadyRated) && !errors.Is(err, ErrConflict) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if success != 1 {
			t.Fatalf("expected exactly 1 rating to stick, got %d", success)
		}
	})
}

func TestConcurrentMessagesKeepOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		o := mustCreateOrder(t, svc, "c_msg_race")

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := svc.AppendMessage(ctx, MessageCommand{OrderID: o.ID, SenderID: "c_msg_race", Text: fmt.Sprintf("m%d", i)}); err != nil {
					t.Errorf("append: %v", err)
				}
			}(i)
		}
		wg.Wait()

		got, err := svc.Get(ctx, o.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got.Messages) != n {
			t.Fatalf("expected %d messages, got %d", n, len(got.Messages))
		}
		for i := 1; i < n; i++ {
			if got.Messages[i].Timestamp <= got.Messages[i-1].Timestamp {
				t.Fatalf("timestamps not strictly increasing at %d", i)
			}
		}
	})
}

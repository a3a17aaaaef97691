package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
)

// DefaultKey holds the whole appointment collection as one JSON array.
const DefaultKey = "massagebook:appointments:v1"

// BlobStore keeps every appointment in a single KV value. Each mutation is a read-modify-write
// executed inside KV.Update, so the uniqueness check and the write commit together.
type BlobStore struct {
	kv  KV
	key string
}

func NewBlobStore(kv KV, key string) *BlobStore {
	if key == "" {
		key = DefaultKey
	}
	return &BlobStore{kv: kv, key: key}
}

func (s *BlobStore) Insert(ctx context.Context, appt model.Appointment) error {
	err := s.kv.Update(ctx, s.key, func(cur []byte) ([]byte, error) {
		appts, err := decode(cur)
		if err != nil {
			return nil, err
		}
		for _, a := range appts {
			if a.ID == appt.ID {
				return nil, fmt.Errorf("duplicate appointment id %s", appt.ID)
			}
			if appt.Active() && a.Active() && a.SlotKey() == appt.SlotKey() {
				return nil, ErrSlotTaken
			}
		}
		return json.Marshal(append(appts, appt))
	})
	return wrap("insert", err)
}

func (s *BlobStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	appts, err := s.load(ctx, "get")
	if err != nil {
		return model.Appointment{}, err
	}
	for _, a := range appts {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, ErrNotFound
}

func (s *BlobStore) FindByProvider(ctx context.Context, providerID, date string) ([]model.Appointment, error) {
	return s.filter(ctx, "find by provider", func(a model.Appointment) bool {
		return a.ProviderID == providerID && (date == "" || a.Date == date)
	})
}

func (s *BlobStore) FindByClient(ctx context.Context, clientID string) ([]model.Appointment, error) {
	return s.filter(ctx, "find by client", func(a model.Appointment) bool {
		return a.ClientID == clientID
	})
}

func (s *BlobStore) Update(ctx context.Context, id string, fn Mutator) (model.Appointment, error) {
	var (
		updated model.Appointment
		mutErr  error
	)
	err := s.kv.Update(ctx, s.key, func(cur []byte) ([]byte, error) {
		appts, err := decode(cur)
		if err != nil {
			return nil, err
		}
		idx := -1
		for i, a := range appts {
			if a.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrNotFound
		}

		next := appts[idx]
		if err := fn(&next); err != nil {
			mutErr = err
			return nil, err
		}
		next.ID = id
		if next.Active() {
			for i, a := range appts {
				if i != idx && a.Active() && a.SlotKey() == next.SlotKey() {
					return nil, ErrSlotTaken
				}
			}
		}
		appts[idx] = next
		updated = next
		return json.Marshal(appts)
	})
	if mutErr != nil {
		return model.Appointment{}, mutErr
	}
	if err != nil {
		return model.Appointment{}, wrap("update", err)
	}
	return updated, nil
}

func (s *BlobStore) All(ctx context.Context) ([]model.Appointment, error) {
	return s.load(ctx, "all")
}

func (s *BlobStore) ReplaceAll(ctx context.Context, appts []model.Appointment) error {
	if err := checkUnique(appts); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return ErrSlotTaken
		}
		return wrap("replace all", err)
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	payload, err := json.Marshal(appts)
	if err != nil {
		return wrap("replace all", err)
	}
	err = s.kv.Update(ctx, s.key, func([]byte) ([]byte, error) {
		return payload, nil
	})
	return wrap("replace all", err)
}

func (s *BlobStore) load(ctx context.Context, op string) ([]model.Appointment, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, wrap(op, err)
	}
	appts, err := decode(raw)
	if err != nil {
		return nil, wrap(op, err)
	}
	return appts, nil
}

func (s *BlobStore) filter(ctx context.Context, op string, keep func(model.Appointment) bool) ([]model.Appointment, error) {
	appts, err := s.load(ctx, op)
	if err != nil {
		return nil, err
	}
	out := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func decode(raw []byte) ([]model.Appointment, error) {
	if len(raw) == 0 {
		return []model.Appointment{}, nil
	}
	var appts []model.Appointment
	if err := json.Unmarshal(raw, &appts); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return appts, nil
}

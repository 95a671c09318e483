package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DeclinePrefix платёжные методы с этим префиксом симулятор отклоняет
const DeclinePrefix = "decline"

// Simulated шлюз без реальных списаний для разработки и тестов
// Одобряет любой платёж, кроме методов с префиксом DeclinePrefix
type Simulated struct {
	mu       sync.Mutex
	verdicts map[string]*Verdict
	calls    int
}

// NewSimulated создает симулятор платёжного шлюза
func NewSimulated() *Simulated {
	return &Simulated{verdicts: make(map[string]*Verdict)}
}

// Charge возвращает вердикт, для повторного ключа идемпотентности - прежний
func (s *Simulated) Charge(_ context.Context, charge Charge) (*Verdict, error) {
	if err := validateCharge(charge); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.verdicts[charge.IdempotencyKey]; ok {
		copied := *v
		return &copied, nil
	}

	s.calls++

	var v *Verdict
	if strings.HasPrefix(charge.PaymentMethod, DeclinePrefix) {
		v = &Verdict{Approved: false, DeclineReason: "card_declined"}
	} else {
		v = &Verdict{Approved: true, Reference: "sim_" + uuid.NewString()}
	}
	s.verdicts[charge.IdempotencyKey] = v

	copied := *v
	return &copied, nil
}

// Calls количество уникальных списаний
func (s *Simulated) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

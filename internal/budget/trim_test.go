package budget

import (
	"fmt"
	"testing"

	"ai-chat-backend/internal/domain/model"
)

func tenByHundred() []model.Message {
	msgs := make([]model.Message, 10)
	for i := range msgs {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs[i] = model.Message{
			ID:      fmt.Sprintf("m%02d", i),
			Role:    role,
			Content: "c",
			Tokens:  100,
		}
	}
	return msgs
}

func TestTrimKeepsLastThreeUnderBudget(t *testing.T) {
	res := TrimRecent(tenByHundred(), 350, fixedCounter{})
	if len(res.Messages) != 3 {
		t.Fatalf("kept %d messages, want 3", len(res.Messages))
	}
	if res.RemovedCount != 7 {
		t.Errorf("RemovedCount = %d, want 7", res.RemovedCount)
	}
	if res.TokensSaved != 700 {
		t.Errorf("TokensSaved = %d, want 700", res.TokensSaved)
	}
	if res.BudgetExceeded {
		t.Error("BudgetExceeded set on a fitting result")
	}
	// Kept set must be the newest three, in original order.
	for i, want := range []string{"m07", "m08", "m09"} {
		if res.Messages[i].ID != want {
			t.Errorf("Messages[%d].ID = %s, want %s", i, res.Messages[i].ID, want)
		}
	}
}

func TestTrimNoopWhenWithinBudget(t *testing.T) {
	msgs := tenByHundred()
	res := TrimRecent(msgs, 1000, fixedCounter{})
	if res.RemovedCount != 0 || res.TokensSaved != 0 {
		t.Errorf("expected no-op, got removed=%d saved=%d", res.RemovedCount, res.TokensSaved)
	}
	if len(res.Messages) != len(msgs) {
		t.Errorf("kept %d, want %d", len(res.Messages), len(msgs))
	}
}

func TestTrimResultIsSuffix(t *testing.T) {
	msgs := tenByHundred()
	for target := 0; target <= 1100; target += 73 {
		res := TrimRecent(msgs, target, fixedCounter{})
		off := len(msgs) - len(res.Messages)
		for i := range res.Messages {
			if res.Messages[i].ID != msgs[off+i].ID {
				t.Fatalf("target=%d: kept set is not a contiguous suffix", target)
			}
		}
	}
}

func TestTrimTokensSavedAccounting(t *testing.T) {
	msgs := []model.Message{
		msgWithTokens(model.RoleUser, 400),
		msgWithTokens(model.RoleAssistant, 250),
		msgWithTokens(model.RoleUser, 120),
		msgWithTokens(model.RoleAssistant, 90),
	}
	res := TrimRecent(msgs, 300, fixedCounter{})
	keptTotal := 0
	for i := range res.Messages {
		keptTotal += res.Messages[i].Tokens
	}
	if res.TokensSaved != 860-keptTotal {
		t.Errorf("TokensSaved = %d, want %d", res.TokensSaved, 860-keptTotal)
	}
}

func TestTrimOversizedNewestMessageIsKept(t *testing.T) {
	msgs := []model.Message{
		msgWithTokens(model.RoleUser, 10),
		msgWithTokens(model.RoleAssistant, 5000),
	}
	res := TrimRecent(msgs, 100, fixedCounter{})
	if len(res.Messages) != 1 {
		t.Fatalf("kept %d messages, want 1", len(res.Messages))
	}
	if !res.BudgetExceeded {
		t.Error("BudgetExceeded not set for an oversized newest message")
	}
	if res.Messages[0].Tokens != 5000 {
		t.Error("kept message is not the newest one")
	}
	if res.RemovedCount != 1 || res.TokensSaved != 10 {
		t.Errorf("removed=%d saved=%d, want 1/10", res.RemovedCount, res.TokensSaved)
	}
}

func TestTrimEmptyInput(t *testing.T) {
	res := TrimRecent(nil, 100, fixedCounter{})
	if len(res.Messages) != 0 || res.RemovedCount != 0 || res.BudgetExceeded {
		t.Errorf("unexpected result for empty input: %+v", res)
	}
}

func TestTrimDoesNotMutateInput(t *testing.T) {
	msgs := tenByHundred()
	before := make([]string, len(msgs))
	for i := range msgs {
		before[i] = msgs[i].ID
	}
	_ = TrimRecent(msgs, 350, fixedCounter{})
	for i := range msgs {
		if msgs[i].ID != before[i] {
			t.Fatal("input slice mutated")
		}
	}
}

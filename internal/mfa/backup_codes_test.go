package mfa

import (
	"strings"
	"testing"
)

func TestBackupCodeBatchDistinctAndWellFormed(t *testing.T) {
	codes := NewBackupCodes(10, 10, "pepper")
	for round := 0; round < 20; round++ {
		batch, err := codes.Generate(0)
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(batch) != 10 {
			t.Fatalf("batch size want 10 got %d", len(batch))
		}
		seen := map[string]bool{}
		for _, code := range batch {
			if len(code) != 11 || code[5] != '-' {
				t.Fatalf("unexpected display format: %q", code)
			}
			canonical := CanonicalBackupCode(code)
			if len(canonical) != 10 {
				t.Fatalf("canonical length want 10 got %d", len(canonical))
			}
			for _, r := range canonical {
				if !strings.ContainsRune(BackupCodeAlphabet, r) {
					t.Fatalf("code %q contains %q outside alphabet", code, r)
				}
			}
			if seen[canonical] {
				t.Fatalf("duplicate code in batch: %s", code)
			}
			seen[canonical] = true
		}
	}
}

func TestBackupCodeGenerateRetriesOnCollision(t *testing.T) {
	codes := NewBackupCodes(3, 10, "pepper")
	calls := 0
	// 前 20 次抽样全部为 0，制造一次重复
	codes.randomIndex = func(max int) (int, error) {
		calls++
		if calls <= 20 {
			return 0, nil
		}
		return calls % max, nil
	}
	batch, err := codes.Generate(3)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if batch[0] != "AAAAA-AAAAA" {
		t.Fatalf("unexpected first code %s", batch[0])
	}
	if batch[1] == batch[0] || batch[2] == batch[1] || batch[2] == batch[0] {
		t.Fatalf("expected distinct codes, got %v", batch)
	}
}

func TestBackupCodeHashBindsAdminAndCanonicalForm(t *testing.T) {
	codes := NewBackupCodes(10, 10, "pepper")
	h1 := codes.Hash(1, "ABCDE-FGHJK")
	if h1 != codes.Hash(1, "abcde fghjk") {
		t.Fatalf("hash must be computed over canonical form")
	}
	if h1 == codes.Hash(2, "ABCDE-FGHJK") {
		t.Fatalf("hash must be bound to admin id")
	}
	if h1 == NewBackupCodes(10, 10, "other").Hash(1, "ABCDE-FGHJK") {
		t.Fatalf("hash must depend on pepper")
	}
	if len(h1) != 64 || strings.Contains(h1, "ABCDE") {
		t.Fatalf("unexpected hash %q", h1)
	}
}

func TestBackupCodeWellFormed(t *testing.T) {
	codes := NewBackupCodes(10, 10, "pepper")
	if !codes.WellFormed("abcde-fghjk") {
		t.Fatalf("lowercase hyphenated code should be accepted")
	}
	for _, bad := range []string{"ABCDE-FGHJ0", "ABCDE", "ABCDE-FGHJKL", "123456"} {
		if codes.WellFormed(bad) {
			t.Fatalf("code %q should be rejected", bad)
		}
	}
}

package persist

import "testing"

func TestTransactionContextCommitElidesUnchangedWrite(t *testing.T) {
	read := Present(5, intComparer)
	tc := NewTransactionContext(read, "tag")

	tc.Commit(5)
	if tc.IsCommitted() {
		t.Fatal("Commit with an equal value should not mark the transaction committed")
	}

	tc.Commit(6)
	if !tc.IsCommitted() {
		t.Fatal("Commit with a different value should mark the transaction committed")
	}
	if tc.IsRemoved() {
		t.Fatal("Commit must not set IsRemoved")
	}
	if tc.CommittedValue() != 6 {
		t.Fatalf("CommittedValue() = %d, want 6", tc.CommittedValue())
	}
}

func TestTransactionContextRemoveAndCommit(t *testing.T) {
	tc := NewTransactionContext(Present(5, intComparer), nil)
	tc.RemoveAndCommit()
	if !tc.IsCommitted() || !tc.IsRemoved() {
		t.Fatal("removing a present value must commit a removal")
	}

	tc2 := NewTransactionContext(Absent[int](intComparer), nil)
	tc2.RemoveAndCommit()
	if tc2.IsCommitted() {
		t.Fatal("removing an already-absent value should not mark the transaction committed")
	}
	if !tc2.IsRemoved() {
		t.Fatal("RemoveAndCommit should always set IsRemoved")
	}
}

func TestTransactionContextCommitOptional(t *testing.T) {
	tc := NewTransactionContext(Present(5, intComparer), nil)
	var v *int
	tc.CommitOptional(v)
	if !tc.IsRemoved() {
		t.Fatal("CommitOptional(nil) should behave like RemoveAndCommit")
	}

	tc2 := NewTransactionContext(Present(5, intComparer), nil)
	n := 7
	tc2.CommitOptional(&n)
	if tc2.IsRemoved() || !tc2.IsCommitted() || tc2.CommittedValue() != 7 {
		t.Fatal("CommitOptional(&v) should behave like Commit(v)")
	}
}

func TestTransactionContextReset(t *testing.T) {
	tc := NewTransactionContext(Present(5, intComparer), nil)
	tc.Commit(9)
	tc.Reset()
	if tc.IsCommitted() || tc.IsRemoved() {
		t.Fatal("Reset should clear both flags")
	}
}

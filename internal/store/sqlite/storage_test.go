package sqlite

import "testing"

func TestNewStorageInMemory_WiresSubstores(t *testing.T) {
	st, err := NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory: %v", err)
	}
	defer st.Close()

	if st.Memories == nil || st.Vectors == nil || st.Waypoints == nil ||
		st.Facts == nil || st.Jobs == nil || st.Links == nil || st.Edges == nil {
		t.Error("expected every substore to be wired")
	}
}

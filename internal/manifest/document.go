package manifest

// Document is the persisted manifest for one backup target: a current Blob
// plus its history, newest-older first (history[0] reconstructs the
// version immediately before current; the last entry reconstructs the
// oldest retained version). Only the ingest publish step mutates it, by
// replacing current and prepending a new PrevBlob.
type Document struct {
	current Blob
	history []PrevBlob
}

// NewDocument wraps the initial Blob of a fresh backup target with empty
// history.
func NewDocument(blob Blob) Document {
	return Document{current: blob}
}

// Current returns the Document's current Blob.
func (d Document) Current() Blob {
	return d.current
}

// Versions returns the history entries in storage order: newest-older to
// oldest-older. The returned slice must not be mutated.
func (d Document) Versions() []PrevBlob {
	return d.history
}

// Update verifies newBlob's invariants, computes the reverse delta from
// (newBlob, d.current), prepends it to history, and replaces current.
func (d Document) Update(newBlob Blob) (Document, error) {
	if err := newBlob.VerifyInvariants(); err != nil {
		return Document{}, err
	}
	delta, err := FromDiff(newBlob, d.current)
	if err != nil {
		return Document{}, err
	}
	history := make([]PrevBlob, 0, len(d.history)+1)
	history = append(history, delta)
	history = append(history, d.history...)
	return Document{current: newBlob, history: history}, nil
}

// GetVersion reconstructs version k (0 = oldest, len(history) = current).
// It returns false if k is out of range.
func (d Document) GetVersion(k int) (Blob, bool) {
	n := len(d.history)
	if k < 0 || k > n {
		return Blob{}, false
	}
	if k == n {
		return d.current, true
	}

	cur := d.current
	// history[0] reconstructs the version right before current; walking
	// forward from index 0 steps one version further into the past each
	// time, down to the (n-1-k)th entry, which lands exactly on version k.
	for i := 0; i <= n-1-k; i++ {
		cur = d.history[i].Reconstruct(cur)
	}
	return cur, true
}

// VersionCount is the number of distinct reconstructable versions:
// len(history) + 1.
func (d Document) VersionCount() int {
	return len(d.history) + 1
}

package tracker

import (
	"fmt"
	"strconv"
	"strings"
)

// Partition is one parliament/session pair of the upstream archive.
type Partition struct {
	Parliament int
	Session    int
}

// String renders the partition as "<parliament>-<session>".
func (p Partition) String() string {
	return fmt.Sprintf("%d-%d", p.Parliament, p.Session)
}

// ParsePartition parses the "<parliament>-<session>" form.
func ParsePartition(s string) (Partition, error) {
	parl, sess, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Partition{}, fmt.Errorf("partition %q: expected <parliament>-<session>", s)
	}
	p, err := strconv.Atoi(parl)
	if err != nil || p <= 0 {
		return Partition{}, fmt.Errorf("partition %q: invalid parliament", s)
	}
	n, err := strconv.Atoi(sess)
	if err != nil || n <= 0 {
		return Partition{}, fmt.Errorf("partition %q: invalid session", s)
	}
	return Partition{Parliament: p, Session: n}, nil
}

// EnumeratePartitions lists every parliament in [from, to] crossed with
// sessions 1..maxSessions, oldest first.
func EnumeratePartitions(from, to, maxSessions int) []Partition {
	if from <= 0 || to < from || maxSessions <= 0 {
		return nil
	}
	out := make([]Partition, 0, (to-from+1)*maxSessions)
	for p := from; p <= to; p++ {
		for s := 1; s <= maxSessions; s++ {
			out = append(out, Partition{Parliament: p, Session: s})
		}
	}
	return out
}

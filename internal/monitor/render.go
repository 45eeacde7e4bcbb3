package monitor

import "fmt"

// StatusLines renders a snapshot as the text block every display backend shows
func StatusLines(s Snapshot, paused bool) []string {
	st := s.State
	lines := []string{
		fmt.Sprintf("PC:$%04X  A:$%02X  X:$%02X  Y:$%02X  SP:$%02X", st.PC, st.A, st.X, st.Y, st.SP),
		fmt.Sprintf("P: %s ($%02X)", st.P, st.P.Byte()),
		fmt.Sprintf("CYC:%d  INS:%d", st.Cycles, s.Instructions),
		"",
	}

	for i, line := range s.Upcoming {
		marker := "  "
		if i == 0 {
			marker = "> "
		}
		lines = append(lines, marker+line.String())
	}
	lines = append(lines, "", statusLine(s, paused))
	return lines
}

func statusLine(s Snapshot, paused bool) string {
	switch {
	case s.Done && s.Err != nil:
		return fmt.Sprintf("HALTED: %s: %v", s.Reason, s.Err)
	case s.Done:
		return "HALTED: " + s.Reason
	case paused:
		return "PAUSED"
	default:
		return "RUNNING"
	}
}

package scan

import "testing"

func TestParseCellularOutput(t *testing.T) {
	out := "LTE,1A2B3C,-85\nbad line\nGSM,00FF11,-102\n"
	towers := parseCellularOutput(out)
	if len(towers) != 2 {
		t.Fatalf("parseCellularOutput() returned %d towers, want 2", len(towers))
	}
	if towers[0].band != "LTE" || towers[0].cellID != "1A2B3C" || towers[0].signalDBM != -85 {
		t.Errorf("tower 0 = %+v, unexpected", towers[0])
	}
	if towers[1].band != "GSM" || towers[1].signalDBM != -102 {
		t.Errorf("tower 1 = %+v, unexpected", towers[1])
	}
}

func TestParseCellularOutput_Empty(t *testing.T) {
	if towers := parseCellularOutput(""); len(towers) != 0 {
		t.Errorf("parseCellularOutput(\"\") = %v, want empty", towers)
	}
}

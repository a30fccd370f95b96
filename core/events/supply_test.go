package events

import (
	"math/big"
	"testing"

	"meltwater/core/types"
)

func TestTokenSupplyEvent(t *testing.T) {
	evt := TokenSupply{
		Token:  "h2o",
		Total:  big.NewInt(5000),
		Delta:  big.NewInt(250),
		Reason: SupplyReasonMint,
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeTokenSupply {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["token"] != "H2O" {
		t.Fatalf("unexpected token attr: %s", evt.Attributes["token"])
	}
	if evt.Attributes["total"] != "5000" || evt.Attributes["delta"] != "250" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if _, ok := evt.Attributes["account"]; ok {
		t.Fatalf("zero account should be omitted")
	}
}

func TestBufferDrainPreservesOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(Wrap(&types.Event{Type: "a"}))
	buf.Emit(Wrap(&types.Event{Type: "b"}))
	drained := buf.Drain()
	if len(drained) != 2 || drained[0].EventType() != "a" || drained[1].EventType() != "b" {
		t.Fatalf("unexpected drain: %+v", drained)
	}
	if len(buf.Drain()) != 0 {
		t.Fatalf("buffer should be empty after drain")
	}
	buf.Emit(Wrap(&types.Event{Type: "c"}))
	buf.Reset()
	if len(buf.Drain()) != 0 {
		t.Fatalf("reset should discard events")
	}
}

func TestFanoutAndRecorder(t *testing.T) {
	first := &Recorder{}
	second := &Recorder{}
	fan := Fanout{first, nil, second}
	fan.Emit(Transfer{Asset: "coin", Amount: big.NewInt(7)})
	if got := first.Types(); len(got) != 1 || got[0] != TypeTransfer {
		t.Fatalf("unexpected first recorder: %v", got)
	}
	recorded := second.Events()
	if len(recorded) != 1 || recorded[0].Attributes["amount"] != "7" || recorded[0].Attributes["asset"] != "COIN" {
		t.Fatalf("unexpected second recorder: %+v", recorded)
	}
}

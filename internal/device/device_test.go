package device

import "testing"

func TestCharacteristicsKnownTypes(t *testing.T) {
	for _, dt := range AllTypes() {
		c, err := CharacteristicsFor(dt)
		if err != nil {
			t.Fatalf("CharacteristicsFor(%s): %v", dt, err)
		}
		if c.TypicalInterfaces < 1 {
			t.Errorf("%s: typical interfaces %d < 1", dt, c.TypicalInterfaces)
		}
		if c.ExpectedUptimeDays < 1 {
			t.Errorf("%s: expected uptime %d < 1", dt, c.ExpectedUptimeDays)
		}
	}
}

func TestCharacteristicsRelations(t *testing.T) {
	cm, _ := CharacteristicsFor(TypeCableModem)
	sw, _ := CharacteristicsFor(TypeSwitch)
	cmts, _ := CharacteristicsFor(TypeCMTS)
	router, _ := CharacteristicsFor(TypeRouter)

	if sw.TypicalInterfaces <= cm.TypicalInterfaces {
		t.Errorf("switch interfaces %d should exceed cable modem %d", sw.TypicalInterfaces, cm.TypicalInterfaces)
	}
	if cmts.TypicalInterfaces <= cm.TypicalInterfaces {
		t.Errorf("cmts interfaces %d should exceed cable modem %d", cmts.TypicalInterfaces, cm.TypicalInterfaces)
	}
	if cmts.ExpectedUptimeDays < sw.ExpectedUptimeDays {
		t.Errorf("cmts uptime %d should be at least switch uptime %d", cmts.ExpectedUptimeDays, sw.ExpectedUptimeDays)
	}
	if sw.ExpectedUptimeDays < cm.ExpectedUptimeDays {
		t.Errorf("switch uptime %d should be at least cable modem uptime %d", sw.ExpectedUptimeDays, cm.ExpectedUptimeDays)
	}

	if !cm.SignalMonitoring {
		t.Error("cable modem should monitor signal")
	}
	if !cmts.SignalMonitoring {
		t.Error("cmts should monitor signal")
	}
	if sw.SignalMonitoring {
		t.Error("switch should not monitor signal")
	}
	if router.SignalMonitoring {
		t.Error("router should not monitor signal")
	}
}

func TestCharacteristicsUnknownType(t *testing.T) {
	if _, err := CharacteristicsFor(Type("toaster")); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

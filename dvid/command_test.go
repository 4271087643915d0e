package dvid

import "testing"

func TestCommand(t *testing.T) {
	cmd := Command{"run", "workers=8", "job.json", "mapping=out/map.txt", "extra"}
	if cmd.Name() != "run" {
		t.Errorf("bad command name %q", cmd.Name())
	}
	var filename string
	overflow := cmd.CommandArgs(&filename)
	if filename != "job.json" {
		t.Errorf("expected job.json, got %q", filename)
	}
	if len(overflow) != 1 || overflow[0] != "extra" {
		t.Errorf("bad overflow %v", overflow)
	}
	if v, found := cmd.Parameter(KeyWorkers); !found || v != "8" {
		t.Errorf("bad workers parameter %q (found %t)", v, found)
	}
	if v, found := cmd.Parameter(KeyMapping); !found || v != "out/map.txt" {
		t.Errorf("bad mapping parameter %q (found %t)", v, found)
	}
	if _, found := cmd.Parameter(KeyOrder); found {
		t.Errorf("order parameter should not be found")
	}

	var a, b string
	Command{"about"}.CommandArgs(&a, &b)
	if a != "" || b != "" {
		t.Errorf("expected empty targets, got %q and %q", a, b)
	}
	if s := cmd.String(); s != "run workers=8 job.json mapping=out/map.txt extra" {
		t.Errorf("bad command string %q", s)
	}
}

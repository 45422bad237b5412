package xproto

import "testing"

func u8(v uint8) *uint8 { return &v }

func TestValidateEndpointsOK(t *testing.T) {
	cases := [][]Endpoint{
		nil,
		{{Host: "a", Port: 1}},
		{{Host: "a", Port: 65535}},
		{{Host: "a", Port: 33060, Priority: u8(100)}, {Host: "b", Port: 33060, Priority: u8(0)}},
		{{Host: "a", Port: 33060}, {Host: "b", Port: 33060}}, // fully implicit
	}
	for i, eps := range cases {
		if err := ValidateEndpoints(eps); err != nil {
			t.Errorf("case %d: unexpected error: %v", i, err)
		}
	}
}

func TestValidateEndpointsPortZero(t *testing.T) {
	err := ValidateEndpoints([]Endpoint{{Host: "a", Port: 0}})
	if err == nil {
		t.Fatal("expected an error for port 0")
	}
}

func TestValidateEndpointsPriorityOutOfRange(t *testing.T) {
	err := ValidateEndpoints([]Endpoint{{Host: "a", Port: 1, Priority: u8(101)}})
	if err == nil {
		t.Fatal("expected an error for priority > 100")
	}
}

func TestValidateEndpointsMixedPriority(t *testing.T) {
	err := ValidateEndpoints([]Endpoint{
		{Host: "a", Port: 1, Priority: u8(50)},
		{Host: "b", Port: 1},
	})
	if err == nil {
		t.Fatal("expected an error for a mixed explicit/implicit priority list")
	}
}

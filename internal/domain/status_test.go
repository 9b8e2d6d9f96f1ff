package domain

import (
	"errors"
	"testing"
)

func TestLifecycleNames_Name(t *testing.T) {
	names := LifecycleNames{Created: "Создан", Issued: "Выдан"}

	if got := names.Name(LifecycleCreated); got != "Создан" {
		t.Fatalf("created name = %q", got)
	}
	if got := names.Name(LifecycleIssued); got != "Выдан" {
		t.Fatalf("issued name = %q", got)
	}
	if got := names.Name(Lifecycle(42)); got != "" {
		t.Fatalf("unknown lifecycle should map to empty name, got %q", got)
	}
}

func TestLifecycleNames_Validate(t *testing.T) {
	tests := []struct {
		name    string
		names   LifecycleNames
		wantErr bool
	}{
		{name: "defaults", names: DefaultLifecycleNames()},
		{name: "empty created", names: LifecycleNames{Issued: "Issued"}, wantErr: true},
		{name: "empty issued", names: LifecycleNames{Created: "Created"}, wantErr: true},
		{name: "same names", names: LifecycleNames{Created: "Done", Issued: "Done"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.names.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLifecycle_MissingError(t *testing.T) {
	if !errors.Is(LifecycleCreated.MissingError(), ErrInitialStatusMissing) {
		t.Fatal("created sentinel should map to ErrInitialStatusMissing")
	}
	if !errors.Is(LifecycleIssued.MissingError(), ErrTerminalStatusMissing) {
		t.Fatal("issued sentinel should map to ErrTerminalStatusMissing")
	}
	if LifecycleIssued.String() != "issued" {
		t.Fatalf("unexpected String(): %s", LifecycleIssued)
	}
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/mrsinham/shanoirimport/internal/devserver"
	"github.com/mrsinham/shanoirimport/internal/dicom"
	"github.com/mrsinham/shanoirimport/internal/session"
	"go.uber.org/zap"
)

// testContext holds state for a single scenario
type testContext struct {
	tmpDir   string
	server   *httptest.Server
	backend  *devserver.Server
	exitCode int
	output   string
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	tc := &testContext{}

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "shanoirimport-e2e-*")
		if err != nil {
			return ctx, err
		}
		tc.tmpDir = tmpDir
		return ctx, nil
	})

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.server != nil {
			tc.server.Close()
			_ = tc.backend.Close()
			tc.server, tc.backend = nil, nil
		}
		if tc.tmpDir != "" {
			os.RemoveAll(tc.tmpDir)
		}
		return ctx, nil
	})

	sc.Step(`^a Shanoir server is running$`, tc.aShanoirServerIsRunning)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, tc.aFileContaining)
	sc.Step(`^a config file "([^"]*)" with detail column "([^"]*)"$`, tc.aConfigFileWithDetailColumn)
	sc.Step(`^I run shanoirimport with "([^"]*)"$`, tc.iRunShanoirimportWith)
	sc.Step(`^the exit code should be (\d+)$`, tc.theExitCodeShouldBe)
	sc.Step(`^the output should contain "([^"]*)"$`, tc.theOutputShouldContain)
	sc.Step(`^"([^"]*)" should contain "([^"]*)"$`, tc.fileShouldContain)
	sc.Step(`^"([^"]*)" should hold (\d+) patients and (\d+) series$`, tc.archiveShouldHold)
	sc.Step(`^"([^"]*)" and "([^"]*)" should be identical$`, tc.filesShouldBeIdentical)
}

func (tc *testContext) expand(s string) string {
	s = strings.ReplaceAll(s, "{tmpdir}", tc.tmpDir)
	if tc.server != nil {
		s = strings.ReplaceAll(s, "{api}", tc.server.URL+devserver.DefaultPrefix)
	}
	return s
}

func (tc *testContext) aShanoirServerIsRunning() error {
	backend, err := devserver.New(devserver.Options{WorkRoot: tc.tmpDir, Logger: zap.NewNop()})
	if err != nil {
		return err
	}
	tc.backend = backend
	tc.server = httptest.NewServer(backend)
	return nil
}

func (tc *testContext) aFileContaining(path, content string) error {
	return os.WriteFile(tc.expand(path), []byte(content), 0o644)
}

func (tc *testContext) aConfigFileWithDetailColumn(path, column string) error {
	content := fmt.Sprintf("api_url: http://localhost:8080/shanoir-ng\ndetail_columns:\n  - %s\n", column)
	return os.WriteFile(tc.expand(path), []byte(content), 0o644)
}

func (tc *testContext) iRunShanoirimportWith(args string) error {
	var output bytes.Buffer
	root := newRootCmd()
	root.SetArgs(splitArgs(tc.expand(args)))
	root.SetOut(&output)
	root.SetErr(&output)

	err := root.ExecuteContext(context.Background())
	tc.output = output.String()
	if err != nil {
		tc.exitCode = 1
	} else {
		tc.exitCode = 0
	}
	return nil
}

func (tc *testContext) theExitCodeShouldBe(expected int) error {
	if tc.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nOutput:\n%s", expected, tc.exitCode, tc.output)
	}
	return nil
}

func (tc *testContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(tc.output, expected) {
		return fmt.Errorf("output does not contain %q\nOutput:\n%s", expected, tc.output)
	}
	return nil
}

func (tc *testContext) fileShouldContain(path, expected string) error {
	content, err := os.ReadFile(tc.expand(path))
	if err != nil {
		return err
	}
	if !strings.Contains(string(content), expected) {
		return fmt.Errorf("%s does not contain %q:\n%s", path, expected, content)
	}
	return nil
}

func (tc *testContext) archiveShouldHold(path string, patients, series int) error {
	data, err := session.LoadArchiveFile(context.Background(), tc.expand(path), zap.NewNop())
	if err != nil {
		return err
	}
	if got := len(data.Patients()); got != patients {
		return fmt.Errorf("expected %d patients, found %d", patients, got)
	}
	if got := dicom.CountSeries(data.Patients()); got != series {
		return fmt.Errorf("expected %d series, found %d", series, got)
	}
	return nil
}

func (tc *testContext) filesShouldBeIdentical(a, b string) error {
	first, err := os.ReadFile(tc.expand(a))
	if err != nil {
		return err
	}
	second, err := os.ReadFile(tc.expand(b))
	if err != nil {
		return err
	}
	if !bytes.Equal(first, second) {
		return fmt.Errorf("%s and %s differ", filepath.Base(a), filepath.Base(b))
	}
	return nil
}

// splitArgs splits a command line string into arguments
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false

	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

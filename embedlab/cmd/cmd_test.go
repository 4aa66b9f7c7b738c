package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})

	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(args ...string) (string, error) {
	resetFlags(rootCmd)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

var _ = Describe("Commands", func() {
	It("should run a fixed number of frames", func() {
		out, err := execute("run", "--frames", "10", "--seed", "1", "--json")

		Expect(err).NotTo(HaveOccurred())

		var snap map[string]any
		Expect(json.Unmarshal([]byte(out), &snap)).To(Succeed())
		Expect(snap["frame"]).To(BeEquivalentTo(10))
		Expect(snap["running"]).To(BeTrue())
	})

	It("should print a summary", func() {
		out, err := execute("run", "--frames", "5")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("frames"))
		Expect(out).To(ContainSubstring("deadline"))
		Expect(out).To(ContainSubstring("memory"))
	})

	It("should print ISR statistics of a scenario", func() {
		out, err := execute("run", "--scenario", "polling-vs-interrupt")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("isr polling"))
		Expect(out).To(ContainSubstring("isr interrupt"))
		Expect(out).To(ContainSubstring("input:trigger"))
	})

	It("should take the frame count from the scenario", func() {
		out, err := execute("run", "--scenario", "stack-overflow", "--json")

		Expect(err).NotTo(HaveOccurred())

		var snap map[string]any
		Expect(json.Unmarshal([]byte(out), &snap)).To(Succeed())
		Expect(snap["frame"]).To(BeNumerically(">", 61))
	})

	It("should run past the last action of a scenario without frames", func() {
		dir := GinkgoT().TempDir()
		file := filepath.Join(dir, "late.yaml")
		Expect(os.WriteFile(file, []byte(
			"name: late\nactions:\n  - {at: 900, input: trigger}\n"),
			0o644)).To(Succeed())

		out, err := execute("run", "--scenario", file, "--json")

		Expect(err).NotTo(HaveOccurred())

		var snap map[string]any
		Expect(json.Unmarshal([]byte(out), &snap)).To(Succeed())
		Expect(snap["frame"]).To(BeEquivalentTo(901))
	})

	It("should reject an unknown scenario", func() {
		_, err := execute("run", "--scenario", "no-such-scenario")

		Expect(err).To(HaveOccurred())
	})

	It("should reject zero frames", func() {
		_, err := execute("run", "--frames", "0")

		Expect(err).To(MatchError(ContainSubstring("--frames")))
	})

	It("should reject a non-positive frame rate", func() {
		_, err := execute("serve", "--fps", "0")

		Expect(err).To(MatchError(ContainSubstring("--fps")))
	})

	It("should list presets, scenarios and inputs", func() {
		out, err := execute("presets")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("overload"))
		Expect(out).To(ContainSubstring("150"))
		Expect(out).To(ContainSubstring("stack-overflow"))
		Expect(out).To(ContainSubstring("isr_len"))
	})

	It("should report a recorded trace", func() {
		trace := filepath.Join(GinkgoT().TempDir(), "trace")

		_, err := execute("run",
			"--scenario", "deadline-presets", "--record="+trace)
		Expect(err).NotTo(HaveOccurred())

		out, err := execute("report", trace)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("deadline_tasks"))
		Expect(strings.Count(out, "success")).To(Equal(3))
		Expect(strings.Count(out, "crash")).To(Equal(1))
	})

	It("should fail to report a missing trace", func() {
		_, err := execute("report",
			filepath.Join(GinkgoT().TempDir(), "missing"))

		Expect(err).To(HaveOccurred())
	})
})

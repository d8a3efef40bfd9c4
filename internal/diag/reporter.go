package diag

// Reporter receives diagnostics. Passes report through the StepContext,
// the scheduler reports plan and run failures.
type Reporter interface {
	Report(code Code, sev Severity, subject Subject, msg string, notes []Note)
}

// ReportBuilder lets callers attach notes before the diagnostic goes out.
//
//	diag.ReportError(rep, diag.SchedCycle, subj, msg).
//		WithNote(other, "also involved").
//		Emit()
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

func newBuilder(r Reporter, sev Severity, code Code, subject Subject, msg string) *ReportBuilder {
	return &ReportBuilder{reporter: r, diag: New(sev, code, subject, msg)}
}

func ReportError(r Reporter, code Code, subject Subject, msg string) *ReportBuilder {
	return newBuilder(r, SevError, code, subject, msg)
}

func ReportWarning(r Reporter, code Code, subject Subject, msg string) *ReportBuilder {
	return newBuilder(r, SevWarning, code, subject, msg)
}

func ReportInfo(r Reporter, code Code, subject Subject, msg string) *ReportBuilder {
	return newBuilder(r, SevInfo, code, subject, msg)
}

func (b *ReportBuilder) WithNote(subject Subject, msg string) *ReportBuilder {
	if b != nil {
		b.diag = b.diag.WithNote(subject, msg)
	}
	return b
}

// Emit forwards the diagnostic; later calls do nothing.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	b.emitted = true
	if b.reporter != nil {
		d := b.diag
		b.reporter.Report(d.Code, d.Severity, d.Subject, d.Message, d.Notes)
	}
}

// BagReporter stores into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, subject Subject, msg string, notes []Note) {
	if r.Bag != nil {
		r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Subject: subject, Notes: notes})
	}
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, Subject, string, []Note) {}

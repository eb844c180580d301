package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/bianoble/linkset/internal/directive"
	"github.com/bianoble/linkset/internal/entry"
	"github.com/bianoble/linkset/internal/symtab"
)

// applyDirectives expands the .drectve text of label into tasks and
// records. A malformed section is reported against label and whatever was
// parsed before the bad token is still applied.
func (r *run) applyDirectives(label, text string) error {
	parsed, perr := directive.Parse(text)
	if perr != nil {
		r.deferred = append(r.deferred, linkErr(ErrMalformedDirective, label, perr))
		r.log.WithError(perr).WithField("path", label).Warn("Malformed directive section")
	}
	if parsed == nil {
		return nil
	}
	r.stats.DirectiveTokens += len(parsed.Exports) + len(parsed.Includes) + parsed.GenericTokens

	for _, x := range parsed.Exports {
		ex, err := directive.ParseExport(x)
		if err != nil {
			r.deferred = append(r.deferred, linkErr(ErrMalformedDirective, label, err))
			continue
		}
		ex.FromDirective = true
		r.addExport(ex, label)
	}
	for _, inc := range parsed.Includes {
		r.queue.Push(Task{Kind: TaskInclude, Name: inc, Origin: label})
	}

	for _, a := range parsed.Args {
		if err := r.applyArg(label, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) applyArg(label string, a directive.Arg) error {
	switch a.Name {
	case "defaultlib":
		r.queue.Push(Task{Kind: TaskAddLibrary, Name: a.Value, Origin: label, Default: true})
	case "nodefaultlib":
		if a.Value == "" {
			r.noDefaultAll = true
		} else {
			r.noDefault[libKey(a.Value)] = struct{}{}
		}
	case "export":
		ex, err := directive.ParseExport(a.Value)
		if err != nil {
			r.deferred = append(r.deferred, linkErr(ErrMalformedDirective, label, err))
			return nil
		}
		ex.FromDirective = true
		r.addExport(ex, label)
	case "include":
		r.queue.Push(Task{Kind: TaskInclude, Name: a.Value, Origin: label})
	case "failifmismatch":
		k, v, err := directive.KeyValue(a.Name, a.Value)
		if err != nil {
			r.deferred = append(r.deferred, linkErr(ErrMalformedDirective, label, err))
			return nil
		}
		if err := r.facts.Add(symtab.Fact{Key: k, Value: v, File: label}); err != nil {
			return linkErr(ErrDirectiveMismatch, "", err)
		}
	case "alternatename":
		from, to, err := directive.KeyValue(a.Name, a.Value)
		if err != nil {
			r.deferred = append(r.deferred, linkErr(ErrMalformedDirective, label, err))
			return nil
		}
		if err := r.syms.AddAlternate(from, to, label); err != nil {
			return linkErr(ErrDirectiveMismatch, "", err)
		}
	case "entry":
		if r.directiveEntry == "" {
			r.directiveEntry = a.Value
		}
	case "subsystem":
		sub, _, err := entry.ParseSubsystem(a.Value)
		if err != nil {
			r.deferred = append(r.deferred, linkErr(ErrMalformedDirective, label, err))
			return nil
		}
		if r.subsystem == entry.SubsystemUnknown {
			r.subsystem = sub
		}
	default:
		fields := logrus.Fields{"path": label, "option": a.Raw}
		if !a.Known {
			r.log.WithFields(fields).Warnf("ignoring unknown argument: %s", a.Raw)
			return nil
		}
		r.log.WithFields(fields).Debug("Directive option has no effect on input resolution")
	}
	return nil
}

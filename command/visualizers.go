package command

import (
	"github.com/wnxd/xamldbg/host"
	"github.com/wnxd/xamldbg/model"
)

var _ = RegisterVisualizer(&Visualizer{Module: FrameworkScope, Type: model.ErrorContextType, New: func(s *Session, addr uint64) (any, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	c, _ := model.NewErrorContext(target, addr)
	return c, nil
}})

var _ = RegisterVisualizer(&Visualizer{Module: FrameworkScope, Type: model.WarningContextType, New: func(s *Session, addr uint64) (any, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	c, _ := model.NewWarningContext(target, addr)
	return c, nil
}})

var _ = RegisterVisualizer(&Visualizer{Module: FrameworkScope, Type: "xstring_ptr_storage", New: stringVisualizer("xstring_ptr_storage")})

var _ = RegisterVisualizer(&Visualizer{Module: FrameworkScope, Type: "xephemeral_string_ptr", New: stringVisualizer("xephemeral_string_ptr")})

var _ = RegisterVisualizer(&Visualizer{Module: FrameworkScope, Type: model.SparsePairType, New: func(s *Session, addr uint64) (any, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	return model.NewSparseProperty(target, addr)
}})

var _ = RegisterVisualizer(&Visualizer{Module: FrameworkScope, Type: "CDependencyProperty *", New: dependencyProperty})

var _ = RegisterVisualizer(&Visualizer{Module: FrameworkScope, Type: "CDependencyProperty const *", New: dependencyProperty})

var _ = RegisterThreadExtension(&ThreadExtension{Name: "xaml", New: func(s *Session, th host.Thread) (any, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	return model.NewThread(target, th)
}})

var _ = RegisterThreadExtension(&ThreadExtension{Name: "errors", New: func(s *Session, th host.Thread) (any, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	var contexts []*model.ErrorContext
	for c := range model.ThreadErrorContexts(target, th) {
		contexts = append(contexts, c)
	}
	return contexts, nil
}})

func stringVisualizer(typ string) func(s *Session, addr uint64) (any, error) {
	return func(s *Session, addr uint64) (any, error) {
		target, err := s.Target()
		if err != nil {
			return nil, err
		}
		return model.NewString(target, addr, typ)
	}
}

// dependencyProperty receives the pointer value, not the location holding it.
func dependencyProperty(s *Session, addr uint64) (any, error) {
	target, err := s.Target()
	if err != nil {
		return nil, err
	}
	return model.NewDependencyProperty(target, addr)
}

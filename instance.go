package patchbay

// InstanceSelectionFor resolves the requirement req, optionally registered
// under name, into the concrete component model to instantiate and the
// bound services satisfying each required service model.
//
// When the map carries defaults the resolution goes through the resolved
// form.  When name matches an explicit selection, that selection is bound
// to every required model and validated like any other explicit batch, so a
// named selection that does not fulfill the requirement fails loudly.
// Otherwise each required model resolves independently: its explicit
// selection chain if one applies, the model itself if not.
//
// The selected values are folded through req.MergeCandidates into one
// component model; each required service model is then located on the
// merged model unless an explicit bound service already pinned it.  Port
// mappings of the chosen bound services are aggregated into one rename
// table.
func (m *SelectionMap) InstanceSelectionFor(name string, req Requirements) (*InstanceSelection, error) {
	if len(m.defaults) > 0 {
		r, err := m.resolvedMap()
		if err != nil {
			return nil, err
		}
		return r.InstanceSelectionFor(name, req)
	}
	required := req.RequiredModels()
	selected := make(map[Model]SelectionValue, len(required))

	var byName SelectionValue
	nameFound := false
	if name != "" {
		if v, ok := m.explicit[Name(name)]; ok {
			final, err := followChain(m.explicit, Name(name), v)
			if err != nil {
				return nil, err
			}
			byName = final
			nameFound = true
		}
	}
	if nameFound {
		// bound services cannot be selection keys; a bound-service
		// requirement is keyed by its service type instead, which also
		// projects the selection down to the matching bound service
		tentative := make(Use, len(required))
		keyFor := make(map[Model]SelectionKey, len(required))
		for _, rm := range required {
			key := SelectionKey(rm)
			if rb, ok := rm.(BoundService); ok {
				key = rb.Service()
			}
			keyFor[rm] = key
			tentative[key] = byName
		}
		normalized, err := normalizeSelection(tentative)
		if err != nil {
			return nil, err
		}
		for _, rm := range required {
			selected[rm] = normalized[keyFor[rm]]
		}
	} else {
		for _, rm := range required {
			v, ok := m.explicit[rm]
			if !ok {
				selected[rm] = rm
				continue
			}
			final, err := followChain(m.explicit, rm, v)
			if err != nil {
				return nil, err
			}
			selected[rm] = final
		}
	}

	candidates := make([]Model, 0, len(required))
	seen := make(map[Model]struct{}, len(required))
	add := func(c Model) {
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		candidates = append(candidates, c)
	}
	for _, rm := range required {
		switch v := selected[rm].(type) {
		case nil:
			// explicit "use nothing": contributes no candidate
		case Name:
			return nil, &NameResolutionError{Names: []string{string(v)},
				Detail: "selection is an unresolved name"}
		case BoundService:
			add(v)
		case ComponentModel:
			add(v)
		case ServiceModel:
			add(v)
		case Requirements:
			for _, sub := range v.RequiredModels() {
				add(sub)
			}
		}
	}
	merged, err := req.MergeCandidates(candidates)
	if err != nil {
		return nil, err
	}

	services := make(map[ServiceModel]BoundService)
	ports := make(map[string]string)
	for _, rm := range required {
		sm, ok := rm.(ServiceModel)
		if !ok {
			continue
		}
		// component models carry the ServiceModel method set too;
		// only true service requirements get service bindings
		if _, isComponent := rm.(ComponentModel); isComponent {
			continue
		}
		// a bound-service requirement names a specific service slot;
		// service lookup and port mapping go through its service type
		lookup := sm
		if rb, ok := rm.(BoundService); ok {
			lookup = rb.Service()
		}
		var bs BoundService
		if pinned, ok := selected[rm].(BoundService); ok {
			bs = pinned
		} else if merged != nil {
			found, err := merged.FindService(lookup)
			if err != nil {
				return nil, err
			}
			bs = found
		}
		if bs == nil {
			continue
		}
		services[sm] = bs
		pm, err := bs.PortMappings(lookup)
		if err != nil {
			return nil, err
		}
		for from, to := range pm {
			ports[from] = to
		}
	}
	return &InstanceSelection{
		Component:    merged,
		Services:     services,
		PortMappings: ports,
	}, nil
}

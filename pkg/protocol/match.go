package protocol

// WireMatch is the on-the-wire representation of a multiplayer match, used
// by NEW_MATCH / UPDATE_MATCH / MATCH_CHANGE_SETTINGS / CREATE_MATCH. Field
// order is fixed and MUST be preserved exactly (§4.A): id, in_progress,
// match type placeholder, mods, name, password, map name, map id, map md5,
// 16x slot status, 16x slot team, 16x slot user id (occupied slots only),
// host id, mode, win condition, team type, freemods, (if freemods) 16x slot
// mods, seed.
//
// Mods always carries the room-wide mods field the client expects to see
// regardless of freemods state; per-slot mods are additionally transmitted
// when FreeMods is set. This follows §9 Open Question (a): the exact byte
// layout should be reverified against a client capture before shipping.
type WireMatch struct {
	ID           int16
	InProgress   bool
	MatchType    uint8 // always 0; reserved by the client for a feature bancho.py never used
	Mods         int32
	Name         string
	Passwd       string
	MapName      string
	MapID        int32
	MapMD5       string
	SlotStatus   [16]uint8
	SlotTeam     [16]uint8
	SlotUserID   [16]int32
	HostID       int32
	Mode         uint8
	WinCondition uint8
	TeamType     uint8
	FreeMods     bool
	SlotMods     [16]int32
	Seed         int32
}

// hasPlayer mirrors the Slot.Status bitmask test from §3: any status other
// than open/locked means the slot is occupied.
func hasPlayer(status uint8) bool {
	return status&0b11111100 != 0
}

// ReadMatch decodes a WireMatch from r.
func ReadMatch(r *Reader) (WireMatch, error) {
	var m WireMatch
	var err error

	id16, err := r.ReadI16()
	if err != nil {
		return m, err
	}
	m.ID = id16

	if m.InProgress, err = r.ReadBool(); err != nil {
		return m, err
	}
	mt, err := r.ReadU8()
	if err != nil {
		return m, err
	}
	m.MatchType = mt
	if m.Mods, err = r.ReadI32(); err != nil {
		return m, err
	}
	if m.Name, err = r.ReadString(); err != nil {
		return m, err
	}
	if m.Passwd, err = r.ReadString(); err != nil {
		return m, err
	}
	if m.MapName, err = r.ReadString(); err != nil {
		return m, err
	}
	if m.MapID, err = r.ReadI32(); err != nil {
		return m, err
	}
	if m.MapMD5, err = r.ReadString(); err != nil {
		return m, err
	}
	for i := 0; i < 16; i++ {
		s, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.SlotStatus[i] = s
	}
	for i := 0; i < 16; i++ {
		t, err := r.ReadU8()
		if err != nil {
			return m, err
		}
		m.SlotTeam[i] = t
	}
	for i := 0; i < 16; i++ {
		if !hasPlayer(m.SlotStatus[i]) {
			continue
		}
		uid, err := r.ReadI32()
		if err != nil {
			return m, err
		}
		m.SlotUserID[i] = uid
	}
	hid, err := r.ReadI32()
	if err != nil {
		return m, err
	}
	m.HostID = hid
	if mode, err := r.ReadU8(); err != nil {
		return m, err
	} else {
		m.Mode = mode
	}
	if wc, err := r.ReadU8(); err != nil {
		return m, err
	} else {
		m.WinCondition = wc
	}
	if tt, err := r.ReadU8(); err != nil {
		return m, err
	} else {
		m.TeamType = tt
	}
	if m.FreeMods, err = r.ReadBool(); err != nil {
		return m, err
	}
	if m.FreeMods {
		for i := 0; i < 16; i++ {
			sm, err := r.ReadI32()
			if err != nil {
				return m, err
			}
			m.SlotMods[i] = sm
		}
	}
	if m.Seed, err = r.ReadI32(); err != nil {
		return m, err
	}
	return m, nil
}

// WriteMatch encodes m to w.
func WriteMatch(w *Writer, m WireMatch) {
	w.WriteI16(m.ID)
	w.WriteBool(m.InProgress)
	w.WriteU8(m.MatchType)
	w.WriteI32(m.Mods)
	w.WriteString(m.Name)
	w.WriteString(m.Passwd)
	w.WriteString(m.MapName)
	w.WriteI32(m.MapID)
	w.WriteString(m.MapMD5)
	for i := 0; i < 16; i++ {
		w.WriteU8(m.SlotStatus[i])
	}
	for i := 0; i < 16; i++ {
		w.WriteU8(m.SlotTeam[i])
	}
	for i := 0; i < 16; i++ {
		if hasPlayer(m.SlotStatus[i]) {
			w.WriteI32(m.SlotUserID[i])
		}
	}
	w.WriteI32(m.HostID)
	w.WriteU8(m.Mode)
	w.WriteU8(m.WinCondition)
	w.WriteU8(m.TeamType)
	w.WriteBool(m.FreeMods)
	if m.FreeMods {
		for i := 0; i < 16; i++ {
			w.WriteI32(m.SlotMods[i])
		}
	}
	w.WriteI32(m.Seed)
}

package watch

// DeviceInformation holds the strings of the device information service.
// Empty fields are not exposed.
type DeviceInformation struct {
	Manufacturer     string
	Model            string
	Serial           string
	HardwareRevision string
	FirmwareRevision string
	SoftwareRevision string
}

// DefaultDeviceInformation is what the prototype watch reports.
var DefaultDeviceInformation = DeviceInformation{
	Manufacturer:     "ARM",
	Model:            "Model1",
	Serial:           "SN1",
	HardwareRevision: "hw-rev1",
	FirmwareRevision: "fw-rev1",
	SoftwareRevision: "soft-rev1",
}

// DeviceInformationService is the read-only device information service.
type DeviceInformationService struct {
	info  DeviceInformation
	owner bool
}

// NewDeviceInformationService registers the device information service
// unless it is already registered.
func NewDeviceInformationService(reg *Registry, info DeviceInformation) (*DeviceInformationService, error) {
	fields := []struct {
		uuid  UUID
		value string
	}{
		{CharacteristicUUIDManufacturerName, info.Manufacturer},
		{CharacteristicUUIDModelNumber, info.Model},
		{CharacteristicUUIDSerialNumber, info.Serial},
		{CharacteristicUUIDHardwareRevision, info.HardwareRevision},
		{CharacteristicUUIDFirmwareRevision, info.FirmwareRevision},
		{CharacteristicUUIDSoftwareRevision, info.SoftwareRevision},
	}
	svc := &Service{UUID: ServiceUUIDDeviceInformation}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		svc.Characteristics = append(svc.Characteristics, Characteristic{
			UUID:  f.uuid,
			Value: []byte(f.value),
			Flags: PermissionRead,
		})
	}
	_, added, err := reg.AddServiceOnce(svc)
	if err != nil {
		return nil, err
	}
	return &DeviceInformationService{info: info, owner: added}, nil
}

// Info returns the exposed strings.
func (s *DeviceInformationService) Info() DeviceInformation {
	return s.info
}

// Owner reports whether constructing this instance registered the service.
func (s *DeviceInformationService) Owner() bool {
	return s.owner
}

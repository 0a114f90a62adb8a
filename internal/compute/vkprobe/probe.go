// Package vkprobe asks the Vulkan loader which physical devices can run compute work.
// The result is used to pick a compute backend and to log what hardware is present.
package vkprobe

import (
	"bytes"
	"fmt"
	"strconv"

	as "github.com/vulkan-go/asche"
	vk "github.com/vulkan-go/vulkan"

	"perlin-terrain/internal/compute"
)

// apiVersion10 is VK_API_VERSION_1_0.
const apiVersion10 = uint32(1) << 22

// PhysicalDevice describes one device reported by the loader.
type PhysicalDevice struct {
	Name                    string
	Type                    string
	APIVersion              string
	ComputeQueueFamilies    int
	MaxWorkgroupInvocations uint32
}

// CanCompute reports whether the device exposes at least one compute queue family.
func (d PhysicalDevice) CanCompute() bool {
	return d.ComputeQueueFamilies > 0
}

// Report is the outcome of a probe.
type Report struct {
	Devices []PhysicalDevice
}

// HasGPUCompute reports whether any non-CPU device can run compute work.
func (r Report) HasGPUCompute() bool {
	for _, d := range r.Devices {
		if d.CanCompute() && d.Type != "cpu" {
			return true
		}
	}
	return false
}

// Probe loads the Vulkan loader, creates a throwaway instance and lists devices.
func Probe() (Report, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return Report{}, fmt.Errorf("%w: vulkan loader: %v", compute.ErrDeviceUnavailable, err)
	}
	if err := vk.Init(); err != nil {
		return Report{}, fmt.Errorf("%w: vulkan init: %v", compute.ErrDeviceUnavailable, err)
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         apiVersion10,
			ApplicationVersion: 1,
			PApplicationName:   "perlin-terrain\x00",
			PEngineName:        "perlin-terrain\x00",
		},
	}, nil, &instance)
	if err := as.NewError(ret); err != nil {
		return Report{}, fmt.Errorf("%w: create instance: %v", compute.ErrDeviceUnavailable, err)
	}
	defer vk.DestroyInstance(instance, nil)

	if err := vk.InitInstance(instance); err != nil {
		return Report{}, fmt.Errorf("%w: init instance: %v", compute.ErrDeviceUnavailable, err)
	}

	var count uint32
	if err := as.NewError(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return Report{}, fmt.Errorf("%w: enumerate devices: %v", compute.ErrDeviceUnavailable, err)
	}
	gpus := make([]vk.PhysicalDevice, count)
	if err := as.NewError(vk.EnumeratePhysicalDevices(instance, &count, gpus)); err != nil {
		return Report{}, fmt.Errorf("%w: enumerate devices: %v", compute.ErrDeviceUnavailable, err)
	}

	report := Report{Devices: make([]PhysicalDevice, 0, count)}
	for _, gpu := range gpus[:count] {
		report.Devices = append(report.Devices, describe(gpu))
	}
	return report, nil
}

func describe(gpu vk.PhysicalDevice) PhysicalDevice {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	props.Limits.Deref()

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &familyCount, families)

	computeFamilies := 0
	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			computeFamilies++
		}
	}

	return PhysicalDevice{
		Name:                    cString(props.DeviceName[:]),
		Type:                    deviceType(props.DeviceType),
		APIVersion:              formatVersion(props.ApiVersion),
		ComputeQueueFamilies:    computeFamilies,
		MaxWorkgroupInvocations: props.Limits.MaxComputeWorkGroupInvocations,
	}
}

func deviceType(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "other"
	}
}

// formatVersion decodes a packed major.minor.patch Vulkan version.
func formatVersion(v uint32) string {
	return strconv.Itoa(int(v>>22)) + "." +
		strconv.Itoa(int((v>>12)&0x3ff)) + "." +
		strconv.Itoa(int(v&0xfff))
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Package report renders persisted scan results into Spanish markdown
// bodies and PDF documents.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mollysec/molly/internal/domain/entity"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// Formatter builds the markdown bodies of the scan reports.
type Formatter struct{}

// NewFormatter creates a report formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// NetworkScanSummary formats the session-wide report: the scan metadata
// block followed by every discovered host with its open services.
func (f *Formatter) NetworkScanSummary(scan *entity.Scan, hosts []*entity.Host, servicesByHost map[string][]*entity.Service) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Resumen de Escaneo de Red - Sesión: %s\n\n", scan.SessionName())
	fmt.Fprintf(&b, "**Tipo de Escaneo:** %s\n", scan.ScanType())
	fmt.Fprintf(&b, "**Objetivo:** %s\n", scan.Target())
	fmt.Fprintf(&b, "**Fecha de Inicio:** %s\n", scan.StartTime().Format(reportTimeLayout))
	fmt.Fprintf(&b, "**Estado:** %s\n", scan.Status())
	if scan.EndTime() != nil {
		fmt.Fprintf(&b, "**Fecha de Finalización:** %s\n", scan.EndTime().Format(reportTimeLayout))
	}
	if scan.Summary() != "" {
		fmt.Fprintf(&b, "**Resumen:** %s\n", scan.Summary())
	}
	b.WriteString("\n---\n\n")

	if len(hosts) == 0 {
		b.WriteString("No se encontraron hosts activos en este escaneo.\n")
		return b.String()
	}

	b.WriteString("## Hosts Descubiertos y Servicios Abiertos\n\n")
	for _, host := range hosts {
		fmt.Fprintf(&b, "### Host: %s", host.IPAddress())
		if host.Hostname() != "" {
			fmt.Fprintf(&b, " (%s)", host.Hostname())
		}
		b.WriteString("\n")

		if host.OS() != "" {
			fmt.Fprintf(&b, "**SO:** %s\n", host.OS())
		}

		services := servicesByHost[host.IPAddress()]
		if len(services) > 0 {
			b.WriteString("**Servicios Abiertos:**\n")
			for _, svc := range services {
				fmt.Fprintf(&b, "- Puerto: %d/%s (%s v%s) Estado: %s\n",
					svc.Port(), svc.Protocol(), svc.Name(), orNA(svc.Version()), svc.State())
			}
		} else {
			b.WriteString("  No se encontraron servicios abiertos en este host.\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// DetailedHostReport formats the per-host report: host identity, open
// services, then the security findings ordered most severe first.
func (f *Formatter) DetailedHostReport(host *entity.Host, services []*entity.Service, findings []*entity.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Informe Detallado del Host: %s", host.IPAddress())
	if host.Hostname() != "" {
		fmt.Fprintf(&b, " (%s)", host.Hostname())
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "**Fecha del Informe:** %s\n", time.Now().Format(reportTimeLayout))
	fmt.Fprintf(&b, "**Dirección IP:** %s\n", host.IPAddress())
	if host.Hostname() != "" {
		fmt.Fprintf(&b, "**Nombre de Host:** %s\n", host.Hostname())
	}
	if host.OS() != "" {
		fmt.Fprintf(&b, "**Sistema Operativo:** %s\n", host.OS())
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Servicios y Puertos Abiertos\n\n")
	if len(services) > 0 {
		for _, svc := range services {
			fmt.Fprintf(&b, "### Puerto: %d/%s\n", svc.Port(), svc.Protocol())
			fmt.Fprintf(&b, "- **Servicio:** %s (Versión: %s)\n", orNA(svc.Name()), orNA(svc.Version()))
			fmt.Fprintf(&b, "- **Estado:** %s\n", orNA(svc.State()))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No se encontraron servicios abiertos para este host en el escaneo detallado.\n\n")
	}

	b.WriteString("---\n\n")

	b.WriteString("## Hallazgos de Seguridad\n\n")
	if len(findings) > 0 {
		ordered := make([]*entity.Finding, len(findings))
		copy(ordered, findings)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Severity().Rank() < ordered[j].Severity().Rank()
		})

		for _, finding := range ordered {
			fmt.Fprintf(&b, "### %s (%s)\n", finding.Title(), finding.Severity())
			fmt.Fprintf(&b, "**Tipo:** %s\n", finding.FindingType())

			if finding.ServiceID() != nil {
				if svc := serviceByID(services, *finding.ServiceID()); svc != nil {
					fmt.Fprintf(&b, "**Servicio Asociado:** %s en puerto %d/%s\n",
						svc.Name(), svc.Port(), svc.Protocol())
				}
			}

			fmt.Fprintf(&b, "**Descripción:** %s\n", finding.Description())
			if finding.Recommendation() != "" {
				fmt.Fprintf(&b, "**Recomendación:** %s\n", finding.Recommendation())
			}
			if len(finding.Details()) > 0 {
				if encoded, err := json.MarshalIndent(finding.Details(), "", "  "); err == nil {
					fmt.Fprintf(&b, "**Detalles Adicionales:**\n```json\n%s\n```\n", encoded)
				}
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No se encontraron hallazgos de seguridad para este host.\n\n")
	}

	b.WriteString("\n---\n")
	b.WriteString("Fin del Informe. Generado por Molly Security AI.")

	return b.String()
}

func serviceByID(services []*entity.Service, id uint) *entity.Service {
	for _, svc := range services {
		if svc.ID() == id {
			return svc
		}
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
